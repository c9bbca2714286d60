package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/fanctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrModeConflict)
	assert.Equal(t, "Frequency can only be set in manual mode", err.Error())

	err = errFactory.WithMessage(errors.ErrInvalidArgument, "bad mode")
	assert.Equal(t, "bad mode", err.Error())

	err = errFactory.WithData(errors.ErrInvalidArgument, "42x")
	assert.Equal(t, "Invalid argument provided: 42x", err.Error())

	assert.Equal(t, "custom_code", errors.GetErrorMessage(errors.ErrorCode("custom_code")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("read failed")
	err := errors.New().Wrap(errors.ErrSensorUnavailable, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, errors.ErrSensorUnavailable, err.Code())
	assert.Contains(t, err.Error(), "read failed")
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrHardwareUnavailable)
	outer := errors.New().Wrap(errors.ErrInitFailed, inner)
	wrapped := fmt.Errorf("start: %w", outer)

	assert.True(t, errors.HasCode(wrapped, errors.ErrInitFailed))
	assert.True(t, errors.HasCode(wrapped, errors.ErrHardwareUnavailable))
	assert.False(t, errors.HasCode(wrapped, errors.ErrModeConflict))
	assert.False(t, errors.HasCode(nil, errors.ErrModeConflict))

	code, ok := errors.CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, errors.ErrInitFailed, code)

	_, ok = errors.CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}
