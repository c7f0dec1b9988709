// Package sanitizer cleans user-authored campaign bodies before they are
// mailed and derives the plain-text alternative part from them.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	emailPolicy  *bluemonday.Policy
	initOnce     sync.Once

	blockBreak  = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/h[1-6]|/li|/tr|/blockquote)\s*>`)
	listItem    = regexp.MustCompile(`(?i)<\s*li[^>]*>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	linkPattern = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a>`)
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Formatting that renders in mainstream mail clients; no scripts,
		// forms, event handlers or non-http(s)/mailto URLs.
		emailPolicy = bluemonday.UGCPolicy()
		emailPolicy.AllowURLSchemes("http", "https", "mailto")
		emailPolicy.AllowElements("center", "font", "span", "div", "hr")
		emailPolicy.AllowAttrs("align").OnElements("p", "div", "td", "th", "table", "img", "center")
		emailPolicy.AllowAttrs("width", "height").OnElements("img", "table", "td", "th")
		emailPolicy.AllowAttrs("color").OnElements("font")
		emailPolicy.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
		emailPolicy.RequireNoFollowOnLinks(true)
		emailPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
}

// EmailHTML removes anything unsafe from a campaign body while keeping
// ordinary formatting, links, images and layout tables.
func EmailHTML(s string) string {
	initPolicies()
	return emailPolicy.Sanitize(s)
}

// PlainText converts an HTML body into a readable text part. Block elements
// become line breaks, list items get a "- " prefix and links keep their URL
// after the label.
func PlainText(s string) string {
	initPolicies()

	s = linkPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := linkPattern.FindStringSubmatch(m)
		label := strings.TrimSpace(strictPolicy.Sanitize(parts[2]))
		href := html.UnescapeString(parts[1])
		if label == "" || label == href {
			return href
		}
		return label + " (" + href + ")"
	})
	s = listItem.ReplaceAllString(s, "- ")
	s = blockBreak.ReplaceAllString(s, "\n")
	s = html.UnescapeString(strictPolicy.Sanitize(s))

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
