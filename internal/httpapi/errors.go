package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/internal/campaign"
	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/mailbox"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/internal/token"
	"github.com/dmitrymomot/courier/pkg/oauth"
)

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("httpapi: bad request")

// HTTPError is the rendered form of a failed request.
type HTTPError struct {
	Err     error  `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *HTTPError) Error() string { return e.Message }
func (e *HTTPError) Unwrap() error { return e.Err }

type errorBody struct {
	Error   *HTTPError `json:"error"`
	Outcome any        `json:"outcome,omitempty"`
}

type mapping struct {
	err     error
	code    string
	message string
	status  int
}

// mappings is checked in order with errors.Is. An empty message means the
// error text is safe to show and is used as is.
var mappings = []mapping{
	{errBadRequest, "bad_request", "", http.StatusBadRequest},
	{auth.ErrMissingToken, "unauthorized", "authentication required", http.StatusUnauthorized},
	{auth.ErrTokenExpired, "unauthorized", "authentication token expired", http.StatusUnauthorized},
	{auth.ErrInvalidToken, "unauthorized", "invalid authentication token", http.StatusUnauthorized},
	{campaign.ErrUnauthorized, "unauthorized", "authentication required", http.StatusUnauthorized},
	{campaign.ErrMissingSubject, "missing_subject", "subject is required", http.StatusUnprocessableEntity},
	{campaign.ErrMissingBody, "missing_body", "body is required", http.StatusUnprocessableEntity},
	{campaign.ErrInvalidMode, "invalid_mode", "mode must be real or test", http.StatusUnprocessableEntity},
	{campaign.ErrInvalidFormat, "invalid_format", "format must be html, markdown or text", http.StatusUnprocessableEntity},
	{campaign.ErrAttachment, "invalid_attachment", "", http.StatusUnprocessableEntity},
	{recipient.ErrInvalidRecipient, "invalid_recipient", "", http.StatusUnprocessableEntity},
	{recipient.ErrEmptyRecipientList, "empty_recipient_list", "no recipients to send to", http.StatusUnprocessableEntity},
	{quota.ErrQuotaExceeded, "quota_exceeded", "", http.StatusTooManyRequests},
	{token.ErrNotConnected, "mailbox_not_connected", "connect a mailbox before sending", http.StatusConflict},
	{token.ErrReauthorizationRequired, "reauthorization_required", "mailbox access was revoked, reconnect the mailbox", http.StatusConflict},
	{token.ErrRefreshUnavailable, "token_refresh_unavailable", "mail provider is unavailable, try again later", http.StatusServiceUnavailable},
	{campaign.ErrTestSendFailed, "test_send_failed", "test message was not delivered", http.StatusBadGateway},
	{mailbox.ErrInvalidState, "invalid_state", "connect link is invalid or expired", http.StatusBadRequest},
	{mailbox.ErrNoRefreshToken, "no_refresh_token", "mailbox did not grant offline access, try connecting again", http.StatusBadRequest},
	{mailbox.ErrExchangeFailed, "oauth_exchange_failed", "could not complete mailbox authorization", http.StatusBadGateway},
	{oauth.ErrEmailNotVerified, "email_not_verified", "mailbox email address is not verified", http.StatusBadRequest},
	{oauth.ErrRequestFailed, "oauth_userinfo_failed", "could not read the mailbox account", http.StatusBadGateway},
	{oauth.ErrFetchFailed, "oauth_userinfo_failed", "could not read the mailbox account", http.StatusBadGateway},
	{credential.ErrStorage, "storage_error", "credential storage failure", http.StatusInternalServerError},
}

// toHTTPError maps err to a status and a client-safe message.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return &HTTPError{Err: err, Code: m.code, Message: msg, Status: m.status}
		}
	}
	return &HTTPError{
		Err:     err,
		Code:    "internal_error",
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error, outcome any) {
	he := toHTTPError(err)
	if he.Status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", he.Status),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, he.Status, errorBody{Error: he, Outcome: outcome})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(msg string) error {
	return &HTTPError{Err: errBadRequest, Code: "bad_request", Message: msg, Status: http.StatusBadRequest}
}
