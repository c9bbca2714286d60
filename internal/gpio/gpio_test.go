package gpio_test

import (
	"testing"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenNone(t *testing.T) {
	line, err := gpio.Open(gpio.Config{Kind: gpio.KindNone})
	require.NoError(t, err)

	assert.NoError(t, line.Set(true))
	assert.NoError(t, line.Close())
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := gpio.Open(gpio.Config{Kind: "spi"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, gpio.ErrUnknownKind))
}

func TestOpenMissingChip(t *testing.T) {
	_, err := gpio.Open(gpio.Config{Kind: gpio.KindGPIOCDev, Chip: "gpiochip-does-not-exist", Offset: 10})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, gpio.ErrHardwareUnavailable))
}

func TestFake(t *testing.T) {
	f := gpio.NewFake()
	assert.False(t, f.Value())

	require.NoError(t, f.Set(true))
	require.NoError(t, f.Set(false))
	require.NoError(t, f.Set(true))
	assert.True(t, f.Value())
	assert.Len(t, f.Writes(), 3)

	f.Fail(assert.AnError)
	assert.ErrorIs(t, f.Set(false), assert.AnError)
	assert.True(t, f.Value(), "failed write must not be recorded")

	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
}
