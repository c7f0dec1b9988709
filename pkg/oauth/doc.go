// Package oauth provides the OAuth2 authorization code flow used to connect a
// user's Google mailbox for sending, plus token refresh and revocation.
//
// # Features
//
//   - Google implementation requesting gmail.send with offline access and forced
//     consent, so every authorization yields a refresh token
//   - Refresh with failure classification: ErrInvalidGrant (reconnect needed)
//     versus ErrRefreshUnavailable (try again later)
//   - Best-effort revocation on disconnect
//   - User info read through the Google OAuth2 API client
//   - Functional options for custom HTTP clients and endpoints
//
// # Usage
//
//	provider, err := oauth.NewGoogleProvider(oauth.GoogleConfig{
//		ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
//		ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
//		RedirectURL:  "https://example.com/api/mailbox/callback",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	url := provider.AuthCodeURL(state)
//
//	// In the callback handler:
//	token, err := provider.Exchange(ctx, code)
//	user, err := provider.FetchUserInfo(ctx, token)
//
//	// Later, when the access token expired:
//	fresh, err := provider.Refresh(ctx, refreshToken)
//	if errors.Is(err, oauth.ErrInvalidGrant) {
//		// the user must reconnect
//	}
//
// # Testing
//
// Use WithEndpoints to point the provider at an httptest server:
//
//	provider, err := oauth.NewGoogleProvider(cfg,
//		oauth.WithEndpoints(ts.URL+"/auth", ts.URL+"/token", ts.URL+"/", ts.URL+"/revoke"),
//	)
//
// # Security
//
//   - Always validate the state parameter to prevent CSRF attacks
//   - Store tokens encrypted at rest (see pkg/secrets)
//   - Refresh errors never carry the token endpoint response body
package oauth
