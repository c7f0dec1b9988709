package mailer_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want mailer.Class
	}{
		{"nil", nil, mailer.ClassNone},
		{"auth expired", fmt.Errorf("gmail: %w", mailer.ErrAuthExpired), mailer.ClassAuthExpired},
		{"transient", errors.Join(mailer.ErrTransient, errors.New("503")), mailer.ClassTransient},
		{"rejected", errors.Join(mailer.ErrRejected, errors.New("bad address")), mailer.ClassRejected},
		{"deadline", context.DeadlineExceeded, mailer.ClassTransient},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, mailer.ClassTransient},
		{"unknown", errors.New("weird"), mailer.ClassRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mailer.Classify(tt.err))
		})
	}
}

func TestClass_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "auth_expired", mailer.ClassAuthExpired.String())
	assert.Equal(t, "transient", mailer.ClassTransient.String())
	assert.Equal(t, "rejected", mailer.ClassRejected.String())
}
