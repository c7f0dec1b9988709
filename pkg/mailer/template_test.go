package mailer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	t.Run("front matter and body", func(t *testing.T) {
		t.Parallel()

		tpl, err := mailer.ParseTemplate([]byte("---\nSubject: Hi\n---\nBody\n"))
		require.NoError(t, err)
		assert.Equal(t, "Hi", tpl.Metadata["Subject"])
		assert.Equal(t, "Body\n", tpl.Body)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		t.Parallel()

		tpl, err := mailer.ParseTemplate([]byte("---\r\nSubject: Hi\r\n---\r\nBody"))
		require.NoError(t, err)
		assert.Equal(t, "Hi", tpl.Metadata["Subject"])
		assert.Equal(t, "Body", tpl.Body)
	})

	t.Run("no front matter", func(t *testing.T) {
		t.Parallel()

		tpl, err := mailer.ParseTemplate([]byte("Just text"))
		require.NoError(t, err)
		assert.Empty(t, tpl.Metadata)
		assert.Equal(t, "Just text", tpl.Body)
	})

	t.Run("empty front matter", func(t *testing.T) {
		t.Parallel()

		tpl, err := mailer.ParseTemplate([]byte("---\n---\nBody"))
		require.NoError(t, err)
		assert.Empty(t, tpl.Metadata)
		assert.Equal(t, "Body", tpl.Body)
	})

	t.Run("unterminated front matter", func(t *testing.T) {
		t.Parallel()

		_, err := mailer.ParseTemplate([]byte("---\nSubject: Hi\nBody"))
		require.ErrorIs(t, err, mailer.ErrInvalidFrontmatter)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		_, err := mailer.ParseTemplate([]byte("---\nSubject: [unclosed\n---\nBody"))
		require.ErrorIs(t, err, mailer.ErrInvalidFrontmatter)
	})
}
