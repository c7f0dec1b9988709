package oauth

// GoogleConfig holds Google OAuth configuration for connecting a sending mailbox.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL" envDefault:""`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:","`
}
