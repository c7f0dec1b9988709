package resend

// Config holds Resend email provider configuration.
// Embedded in the service config and parsed with caarlos0/env.
type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"RESEND_FROM_EMAIL"`
	SenderName  string `env:"RESEND_FROM_NAME" envDefault:"Courier"`
}
