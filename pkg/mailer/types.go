package mailer

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	Headers     map[string]string // Custom headers
	Subject     string            // Email subject
	HTML        string            // HTML body content
	Text        string            // Plain text alternative
	From        string            // Override default sender (if provider allows)
	ReplyTo     string            // Reply-to address
	To          []string          // Recipients (at least one required)
	CC          []string          // Carbon copy recipients
	BCC         []string          // Blind carbon copy recipients
	Attachments []Attachment      // File attachments
}

// Validate checks the fields every provider requires.
func (e *Email) Validate() error {
	if len(e.To) == 0 {
		return ErrNoRecipient
	}
	if strings.TrimSpace(e.Subject) == "" {
		return ErrNoSubject
	}
	if e.HTML == "" && e.Text == "" {
		return ErrNoContent
	}
	return nil
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	ContentID   string // Optional Content-ID for inline attachments
	Content     []byte // Raw file content
}

// Address formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
// Names containing RFC 5322 specials or non-ASCII are quoted or encoded.
func Address(name, email string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return email
	}
	if strings.ContainsAny(name, `()<>[]:;@\,."`) || !isASCII(name) {
		return (&mail.Address{Name: name, Address: email}).String()
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
