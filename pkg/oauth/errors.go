package oauth

import "errors"

var (
	// ErrMissingClientID is returned when the OAuth client ID is not provided.
	ErrMissingClientID = errors.New("oauth: missing client ID")

	// ErrMissingClientSecret is returned when the OAuth client secret is not provided.
	ErrMissingClientSecret = errors.New("oauth: missing client secret")

	// ErrEmailNotVerified is returned when the OAuth provider reports
	// that the user's email is not verified.
	ErrEmailNotVerified = errors.New("oauth: email not verified")

	// ErrExchangeFailed is returned when an authorization code could not be
	// traded for tokens for a reason other than a rejected grant.
	ErrExchangeFailed = errors.New("oauth: code exchange failed")

	// ErrFetchFailed is returned when fetching data from the OAuth provider fails.
	ErrFetchFailed = errors.New("oauth: failed to fetch from provider")

	// ErrRequestFailed is returned when the OAuth provider returns a non-OK status.
	ErrRequestFailed = errors.New("oauth: request returned non-OK status")

	// ErrMissingRefreshToken is returned when Refresh is called without a refresh token.
	ErrMissingRefreshToken = errors.New("oauth: missing refresh token")

	// ErrInvalidGrant is returned when the provider rejects a code or refresh
	// token (revoked, expired, or issued to another client). Retrying will not
	// help.
	ErrInvalidGrant = errors.New("oauth: refresh token rejected by provider")

	// ErrInvalidClient is returned alongside ErrRefreshUnavailable or
	// ErrExchangeFailed when the provider rejects the OAuth client itself
	// (wrong or rotated client secret). User grants are unaffected.
	ErrInvalidClient = errors.New("oauth: client credentials rejected by provider")

	// ErrRefreshUnavailable is returned when a refresh could not complete for a
	// transient reason (network failure, timeout, provider 5xx).
	ErrRefreshUnavailable = errors.New("oauth: token endpoint unavailable")
)
