package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/internal/campaign"
	"github.com/dmitrymomot/courier/internal/recipient"
)

const (
	audienceSubscribers = "subscribers"
	defaultPageSize     = 50
	maxPageSize         = 500
)

// sendRequest is a campaign request that may target the saved audience
// instead of an explicit recipient list.
type sendRequest struct {
	campaign.Request
	Audience string `json:"audience,omitempty"`
}

func (s *server) sendCampaign(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	switch req.Audience {
	case "":
	case audienceSubscribers:
		if s.Subscribers == nil {
			s.writeError(w, r, badRequest("subscriber audience is not available"), nil)
			return
		}
		if len(req.Recipients) > 0 {
			s.writeError(w, r, badRequest("recipients and audience are mutually exclusive"), nil)
			return
		}
		list, err := s.Subscribers.Recipients(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		req.Recipients = list
	default:
		s.writeError(w, r, badRequest("unknown audience "+strconv.Quote(req.Audience)), nil)
		return
	}

	out, err := s.Campaigns.Send(r.Context(), req.Request)
	s.writeOutcome(w, r, out, err)
}

func (s *server) sendTest(w http.ResponseWriter, r *http.Request) {
	var req campaign.Request
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	out, err := s.Campaigns.SendTest(r.Context(), req)
	s.writeOutcome(w, r, out, err)
}

// writeOutcome reports a send. An error that follows a partial dispatch
// carries the outcome so the caller sees who was already sent to.
func (s *server) writeOutcome(w http.ResponseWriter, r *http.Request, out *campaign.Outcome, err error) {
	if err != nil {
		if out != nil {
			s.writeError(w, r, err, out)
			return
		}
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, _, err := page(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	records, err := s.Audit.List(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": records})
}

func (s *server) mailboxConnect(w http.ResponseWriter, r *http.Request) {
	link, err := s.Mailboxes.ConnectURL(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": link})
}

func (s *server) mailboxCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		s.writeError(w, r, badRequest("mailbox authorization was declined: "+reason), nil)
		return
	}

	p, err := s.Mailboxes.Callback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	if s.cfg.ConnectRedirectURL != "" {
		target, err := url.Parse(s.cfg.ConnectRedirectURL)
		if err == nil {
			v := target.Query()
			v.Set("connected", p.MailboxEmail)
			target.RawQuery = v.Encode()
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) mailboxDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.Mailboxes.Disconnect(r.Context(), auth.UserID(r.Context())); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) quotaStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Quota.Status(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type importRequest struct {
	Subscribers []recipient.Recipient `json:"subscribers"`
}

func (s *server) importSubscribers(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	n, err := s.Subscribers.Import(r.Context(), auth.UserID(r.Context()), req.Subscribers)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *server) listSubscribers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	list, err := s.Subscribers.List(r.Context(), auth.UserID(r.Context()), limit, offset)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribers": list})
}

// decode reads a JSON body bounded by the configured size.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &HTTPError{Err: errBadRequest, Code: "body_too_large", Message: "request body too large", Status: http.StatusRequestEntityTooLarge}
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON body: " + err.Error())
		}
	}
	return nil
}

func page(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, badRequest("limit must be a positive integer")
		}
		limit = min(limit, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, badRequest("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
