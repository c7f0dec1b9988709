package dispatch

import (
	"html"
	"regexp"
	"strings"

	"github.com/dmitrymomot/courier/internal/recipient"
)

var placeholder = regexp.MustCompile(`(?i)\{\{\s*(first_name|last_name|email)\s*\}\}`)

// Personalize substitutes {{first_name}}, {{last_name}} and {{email}} with the
// recipient's values. Unknown placeholders are left as they are.
func Personalize(s string, r recipient.Recipient) string {
	return substitute(s, r, func(v string) string { return v })
}

// PersonalizeHTML is Personalize with values HTML-escaped.
func PersonalizeHTML(s string, r recipient.Recipient) string {
	return substitute(s, r, html.EscapeString)
}

func substitute(s string, r recipient.Recipient, escape func(string) string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.ToLower(placeholder.FindStringSubmatch(m)[1])
		switch name {
		case "first_name":
			return escape(r.FirstName)
		case "last_name":
			return escape(r.LastName)
		default:
			return escape(r.Email)
		}
	})
}
