package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var frontMatterDelimiter = []byte("---")

// Template is a parsed notification template.
type Template struct {
	Metadata map[string]any
	Body     string
}

// ParseTemplate splits optional YAML front matter from the markdown body.
// Content without a leading "---" line is returned as body with empty metadata.
func ParseTemplate(content []byte) (*Template, error) {
	if !bytes.HasPrefix(content, frontMatterDelimiter) {
		return &Template{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	rest := bytes.TrimLeft(content[len(frontMatterDelimiter):], "\r\n")
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: no content after opening delimiter", ErrInvalidFrontmatter)
	}

	end := bytes.Index(rest, frontMatterDelimiter)
	if end == -1 {
		return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	header := rest[:end]
	body := rest[end+len(frontMatterDelimiter):]
	switch {
	case bytes.HasPrefix(body, []byte("\r\n")):
		body = body[2:]
	case bytes.HasPrefix(body, []byte("\n")):
		body = body[1:]
	}

	metadata := map[string]any{}
	if len(bytes.TrimSpace(header)) > 0 {
		if err := yaml.Unmarshal(header, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}

	return &Template{Metadata: metadata, Body: string(body)}, nil
}
