package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseReachable(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load bill")

	require.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInternal))
	assert.Equal(t, "failed to load bill", Message(err))
}

func TestCodeOf(t *testing.T) {
	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("outermost domain error wins", func(t *testing.T) {
		inner := New(CodeNotFound, "bill not found")
		outer := Wrap(inner, CodeForbidden, "access denied")
		assert.Equal(t, CodeForbidden, CodeOf(outer))
	})

	t.Run("fmt wrapping preserves code", func(t *testing.T) {
		err := fmt.Errorf("settle: %w", New(CodeConflict, "bill is already paid"))
		assert.True(t, Is(err, CodeConflict))
		assert.Equal(t, "bill is already paid", Message(err))
	})
}
