package mailer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

func TestAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ann Lee <ann@example.com>", mailer.Address("Ann Lee", "ann@example.com"))
	assert.Equal(t, "ann@example.com", mailer.Address("  ", "ann@example.com"))
	assert.Equal(t, `"Lee, Ann" <ann@example.com>`, mailer.Address("Lee, Ann", "ann@example.com"))
}
