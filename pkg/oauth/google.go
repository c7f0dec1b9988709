package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	userinfo "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GmailSendScope allows sending mail on the user's behalf and nothing else.
const GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

// GoogleDefaultScopes returns the scopes requested when connecting a mailbox.
func GoogleDefaultScopes() []string {
	return []string{
		GmailSendScope,
		userinfo.UserinfoEmailScope,
		userinfo.UserinfoProfileScope,
	}
}

// UserInfo identifies the Google account behind a connected mailbox.
type UserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// GoogleProvider runs the mailbox authorization flow against Google.
type GoogleProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
	apiBase    string
	revokeURL  string
}

// NewGoogleProvider creates a Google provider.
// Returns an error if ClientID or ClientSecret is empty.
func NewGoogleProvider(cfg GoogleConfig, opts ...Option) (*GoogleProvider, error) {
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.ClientSecret == "" {
		return nil, ErrMissingClientSecret
	}

	o := options{
		endpoint:  googleoauth.Endpoint,
		revokeURL: "https://oauth2.googleapis.com/revoke",
	}
	for _, opt := range opts {
		opt(&o)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = GoogleDefaultScopes()
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     o.endpoint,
		},
		httpClient: o.httpClient,
		apiBase:    o.apiBase,
		revokeURL:  o.revokeURL,
	}, nil
}

// AuthCodeURL returns the consent page URL for state.
// Offline access and forced consent are always requested: without them Google
// only issues a refresh token on the very first authorization.
func (p *GoogleProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	all := append([]oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}, opts...)
	return p.config.AuthCodeURL(state, all...)
}

// Exchange trades an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(p.withClient(ctx), code)
	if err != nil {
		return nil, classifyTokenError(err, ErrExchangeFailed)
	}
	return tok, nil
}

// Refresh exchanges a refresh token for a new access token.
// If Google does not rotate the refresh token, the returned token carries the
// one that was passed in.
func (p *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	src := p.config.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err, ErrRefreshUnavailable)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// FetchUserInfo reads the account behind token.
// Returns ErrEmailNotVerified if Google has not verified the address.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(p.withClient(ctx), token))}
	if p.apiBase != "" {
		opts = append(opts, option.WithEndpoint(p.apiBase))
	}
	svc, err := userinfo.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	u, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: userinfo status=%d", ErrRequestFailed, apiErr.Code)
		}
		return nil, errors.Join(ErrFetchFailed, err)
	}
	if u.VerifiedEmail == nil || !*u.VerifiedEmail {
		return nil, ErrEmailNotVerified
	}

	return &UserInfo{
		ID:      u.Id,
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
	}, nil
}

// Revoke invalidates the given access or refresh token. Revoking a refresh
// token also invalidates the access tokens minted from it.
func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Join(ErrFetchFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(ErrFetchFailed, fmt.Errorf("revoke: %w", err))
	}
	defer resp.Body.Close()

	// Google answers 400 for tokens that are already invalid.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("%w: revoke status=%d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}

func (p *GoogleProvider) withClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

// classifyTokenError separates "the grant is dead" from every other failure,
// which is reported as fallback. Only invalid_grant and unauthorized_client
// condemn the user's token: invalid_client means this server's credentials
// are wrong and says nothing about the grant. The token endpoint's response
// body is never propagated because it may echo request parameters.
func classifyTokenError(err, fallback error) error {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		// Network errors, timeouts and cancellation.
		return errors.Join(fallback, err)
	}

	switch rErr.ErrorCode {
	case "invalid_grant", "unauthorized_client":
		return fmt.Errorf("%w: %s", ErrInvalidGrant, rErr.ErrorCode)
	case "invalid_client":
		return fmt.Errorf("%w: %w", fallback, ErrInvalidClient)
	}
	if rErr.Response == nil {
		return fallback
	}
	if rErr.Response.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", fallback, ErrInvalidClient)
	}
	return fmt.Errorf("%w: status=%d", fallback, rErr.Response.StatusCode)
}
