package gmail

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// BuildMessage renders email as a raw RFC 5322 message.
// The body is a multipart/alternative with text and HTML parts; attachments
// are appended as multipart/mixed siblings.
func BuildMessage(email *mailer.Email, now time.Time) ([]byte, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(now)
	h.SetSubject(email.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("gmail: generate message id: %w", err)
	}

	if email.From != "" {
		from, err := parseList([]string{email.From})
		if err != nil {
			return nil, err
		}
		h.SetAddressList("From", from)
	}
	for _, field := range []struct {
		key  string
		list []string
	}{
		{"To", email.To},
		{"Cc", email.CC},
		{"Bcc", email.BCC},
	} {
		if len(field.list) == 0 {
			continue
		}
		addrs, err := parseList(field.list)
		if err != nil {
			return nil, err
		}
		h.SetAddressList(field.key, addrs)
	}
	if email.ReplyTo != "" {
		replyTo, err := parseList([]string{email.ReplyTo})
		if err != nil {
			return nil, err
		}
		h.SetAddressList("Reply-To", replyTo)
	}
	for k, v := range email.Headers {
		h.Set(k, v)
	}

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("gmail: create message: %w", err)
	}

	if err := writeBody(w, email); err != nil {
		return nil, err
	}
	for _, a := range email.Attachments {
		if err := writeAttachment(w, a); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gmail: close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBody(w *mail.Writer, email *mailer.Email) error {
	iw, err := w.CreateInline()
	if err != nil {
		return fmt.Errorf("gmail: create body: %w", err)
	}

	if email.Text != "" {
		if err := writePart(iw, "text/plain", email.Text); err != nil {
			return err
		}
	}
	if email.HTML != "" {
		if err := writePart(iw, "text/html", email.HTML); err != nil {
			return err
		}
	}

	if err := iw.Close(); err != nil {
		return fmt.Errorf("gmail: close body: %w", err)
	}
	return nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("gmail: create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("gmail: write %s part: %w", contentType, err)
	}
	return pw.Close()
}

func writeAttachment(w *mail.Writer, a mailer.Attachment) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var h mail.AttachmentHeader
	h.SetContentType(contentType, nil)
	h.SetFilename(a.Filename)
	if a.ContentID != "" {
		h.Set("Content-Id", "<"+a.ContentID+">")
	}

	aw, err := w.CreateAttachment(h)
	if err != nil {
		return fmt.Errorf("gmail: create attachment %q: %w", a.Filename, err)
	}
	if _, err := aw.Write(a.Content); err != nil {
		return fmt.Errorf("gmail: write attachment %q: %w", a.Filename, err)
	}
	return aw.Close()
}

func parseList(list []string) ([]*mail.Address, error) {
	out := make([]*mail.Address, 0, len(list))
	for _, s := range list {
		addr, err := mail.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid address %q: %v", mailer.ErrRejected, s, err)
		}
		out = append(out, addr)
	}
	return out, nil
}
