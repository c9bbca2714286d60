//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// ChipLine is not available on non-Linux platforms.
type ChipLine struct{}

func NewChipLine(string, int) (*ChipLine, error) {
	return nil, errUnsupported
}

func (*ChipLine) Set(bool) error { return errUnsupported }

func (*ChipLine) Close() error { return nil }

// RPIOLine is not available on non-Linux platforms.
type RPIOLine struct{}

func NewRPIOLine(int) (*RPIOLine, error) {
	return nil, errUnsupported
}

func (*RPIOLine) Set(bool) error { return errUnsupported }

func (*RPIOLine) Close() error { return nil }
