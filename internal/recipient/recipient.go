// Package recipient turns the recipients of a send request into an ordered
// list of send targets with invalid entries rejected and duplicates removed.
package recipient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Mode selects between a real campaign send and a test send to oneself.
type Mode string

const (
	ModeReal Mode = "real"
	ModeTest Mode = "test"
)

var (
	// ErrInvalidRecipient is wrapped by *InvalidRecipientError.
	ErrInvalidRecipient = errors.New("recipient: invalid email address")

	// ErrEmptyRecipientList is returned when a real send resolves to nobody.
	ErrEmptyRecipientList = errors.New("recipient: recipient list is empty")

	// ErrNoMailbox is returned when a test send has no mailbox address to
	// target.
	ErrNoMailbox = errors.New("recipient: no connected mailbox address")
)

// InvalidRecipientError names the offending entry of the request.
type InvalidRecipientError struct {
	Email string
	Index int
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("recipient: invalid email address %q at position %d", e.Email, e.Index)
}

func (e *InvalidRecipientError) Unwrap() error { return ErrInvalidRecipient }

// Recipient is a resolved send target. Names may be empty but are never
// absent.
type Recipient struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Key is the de-duplication key.
func (r Recipient) Key() string {
	return strings.ToLower(r.Email)
}

// Self is the requesting user's connected mailbox.
type Self struct {
	Email       string
	DisplayName string
}

// Request is what the resolver needs from a send request.
type Request struct {
	Self       *Self
	Mode       Mode
	Recipients []Recipient
}

// Resolve expands a request into send targets. Test mode ignores the supplied
// list and targets the user's own mailbox.
func Resolve(req Request) ([]Recipient, error) {
	if req.Mode == ModeTest {
		if req.Self == nil || strings.TrimSpace(req.Self.Email) == "" {
			return nil, ErrNoMailbox
		}
		first, last := SplitName(req.Self.DisplayName)
		return []Recipient{{
			Email:     strings.TrimSpace(req.Self.Email),
			FirstName: first,
			LastName:  last,
		}}, nil
	}

	out, err := Normalize(req.Recipients)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptyRecipientList
	}
	return out, nil
}

// Normalize validates every entry and collapses duplicates by lowercased
// email, keeping the first occurrence and its position. The whole list is
// rejected if any entry is invalid.
func Normalize(list []Recipient) ([]Recipient, error) {
	seen := make(map[string]struct{}, len(list))
	out := make([]Recipient, 0, len(list))

	for i, r := range list {
		r.Email = strings.TrimSpace(r.Email)
		r.FirstName = strings.TrimSpace(r.FirstName)
		r.LastName = strings.TrimSpace(r.LastName)

		if !ValidEmail(r.Email) {
			return nil, &InvalidRecipientError{Index: i, Email: r.Email}
		}

		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

// ValidEmail reports whether s is a syntactically plausible bare address:
// it parses as RFC 5322, carries no display name, and has a dotted domain.
func ValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}

	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}

// SplitName splits a display name on whitespace: the first field is the first
// name and the rest is the last name.
func SplitName(display string) (first, last string) {
	fields := strings.Fields(display)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
