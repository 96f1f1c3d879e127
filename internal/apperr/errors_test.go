package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"validation", Validation("cadence must be positive, got %d", 0), ErrValidation},
		{"not found", NotFound("challenge %s", "abc"), ErrNotFound},
		{"wrong channel", WrongChannel("video %s", "v1"), ErrWrongChannel},
		{"external", External("youtube", context.DeadlineExceeded), ErrExternalService},
		{"storage", Storage("insert upload", errors.New("conn reset")), ErrStorage},
		{"wrapped twice", fmt.Errorf("submit: %w", NotFound("video")), ErrNotFound},
		{"plain", errors.New("boom"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestExternalKeepsCause(t *testing.T) {
	err := External("ses", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, External("ses", nil))
}
