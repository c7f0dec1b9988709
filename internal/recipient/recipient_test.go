package recipient_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/recipient"
)

func TestResolve_Real(t *testing.T) {
	t.Parallel()

	t.Run("dedupes case-insensitively keeping first occurrence", func(t *testing.T) {
		t.Parallel()
		got, err := recipient.Resolve(recipient.Request{
			Mode: recipient.ModeReal,
			Recipients: []recipient.Recipient{
				{Email: "Ann@X.com", FirstName: "Ann"},
				{Email: "bob@x.com", FirstName: "Bob"},
				{Email: "ann@x.com", FirstName: "Annie"},
				{Email: " carl@x.com ", FirstName: " Carl ", LastName: "Jr"},
				{Email: "BOB@x.com"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []recipient.Recipient{
			{Email: "Ann@X.com", FirstName: "Ann"},
			{Email: "bob@x.com", FirstName: "Bob"},
			{Email: "carl@x.com", FirstName: "Carl", LastName: "Jr"},
		}, got)
	})

	t.Run("rejects the whole list on one invalid entry", func(t *testing.T) {
		t.Parallel()
		_, err := recipient.Resolve(recipient.Request{
			Mode: recipient.ModeReal,
			Recipients: []recipient.Recipient{
				{Email: "a@x.com"},
				{Email: "not-an-email"},
			},
		})
		require.ErrorIs(t, err, recipient.ErrInvalidRecipient)

		var invalid *recipient.InvalidRecipientError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, 1, invalid.Index)
		assert.Equal(t, "not-an-email", invalid.Email)
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()
		_, err := recipient.Resolve(recipient.Request{Mode: recipient.ModeReal})
		assert.ErrorIs(t, err, recipient.ErrEmptyRecipientList)
	})
}

func TestResolve_TestModeIgnoresList(t *testing.T) {
	t.Parallel()

	lists := [][]recipient.Recipient{
		nil,
		{{Email: "a@x.com"}},
		{{Email: "a@x.com"}, {Email: "b@x.com"}, {Email: "invalid"}},
	}
	for i, list := range lists {
		t.Run(fmt.Sprintf("list %d", i), func(t *testing.T) {
			t.Parallel()
			got, err := recipient.Resolve(recipient.Request{
				Mode:       recipient.ModeTest,
				Recipients: list,
				Self:       &recipient.Self{Email: "me@x.com", DisplayName: "Mary Ann Smith"},
			})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, recipient.Recipient{Email: "me@x.com", FirstName: "Mary", LastName: "Ann Smith"}, got[0])
		})
	}

	t.Run("no mailbox", func(t *testing.T) {
		t.Parallel()
		_, err := recipient.Resolve(recipient.Request{Mode: recipient.ModeTest})
		assert.ErrorIs(t, err, recipient.ErrNoMailbox)
	})
}

func TestNormalize_NoDuplicateKeys(t *testing.T) {
	t.Parallel()

	var list []recipient.Recipient
	for i := range 50 {
		email := fmt.Sprintf("user%d@example.com", i%7)
		if i%2 == 0 {
			email = strings.ToUpper(email)
		}
		list = append(list, recipient.Recipient{Email: email})
	}

	got, err := recipient.Normalize(list)
	require.NoError(t, err)
	require.Len(t, got, 7)

	seen := map[string]bool{}
	for i, r := range got {
		assert.False(t, seen[r.Key()], "duplicate %s", r.Email)
		seen[r.Key()] = true
		assert.Equal(t, strings.ToLower(fmt.Sprintf("user%d@example.com", i)), r.Key(), "first-seen order")
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"a@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"plain", false},
		{"@x.com", false},
		{"a@", false},
		{"a@localhost", false},
		{"a@.com", false},
		{"a@x.com.", false},
		{"Ann <a@x.com>", false},
		{"a b@x.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, recipient.ValidEmail(tt.in))
		})
	}
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, first, last string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"Ann", "Ann", ""},
		{"Ann Lee", "Ann", "Lee"},
		{"  Ann   van  der Berg ", "Ann", "van der Berg"},
	}
	for _, tt := range tests {
		first, last := recipient.SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
