package oauth

import (
	"net/http"

	"golang.org/x/oauth2"
)

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	endpoint   oauth2.Endpoint
	apiBase    string
	revokeURL  string
}

// WithHTTPClient sets the HTTP client for token, userinfo and revoke calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithEndpoints points the provider at another OAuth server. apiBase is the
// root the userinfo API is served under (".../oauth2/v2/userinfo" is
// appended). Empty values keep the Google defaults.
func WithEndpoints(authURL, tokenURL, apiBase, revokeURL string) Option {
	return func(o *options) {
		if authURL != "" {
			o.endpoint.AuthURL = authURL
		}
		if tokenURL != "" {
			o.endpoint.TokenURL = tokenURL
		}
		if apiBase != "" {
			o.apiBase = apiBase
		}
		if revokeURL != "" {
			o.revokeURL = revokeURL
		}
	}
}
