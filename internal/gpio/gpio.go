// Package gpio drives the single actuated output line.
package gpio

import (
	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
)

const (
	KindGPIOCDev = "gpiocdev"
	KindRPIO     = "rpio"
	KindNone     = "none"

	DefaultChip = "gpiochip0"
	DefaultLine = 10

	consumer = "fand"
)

const (
	ErrHardwareUnavailable = errors.ErrHardwareUnavailable
	ErrUnknownKind         = errors.ErrorCode("gpio_unknown_kind")
)

// Line is an output that can be asserted and released.
type Line interface {
	Set(on bool) error
	Close() error
}

type Config struct {
	Kind   string
	Chip   string
	Offset int
}

func DefaultConfig() Config {
	return Config{
		Kind:   KindGPIOCDev,
		Chip:   DefaultChip,
		Offset: DefaultLine,
	}
}

// Open requests the line described by cfg as an output, initially low.
func Open(cfg Config) (Line, error) {
	errFactory := errors.New()

	var (
		line Line
		err  error
	)

	switch cfg.Kind {
	case KindGPIOCDev, "":
		line, err = NewChipLine(cfg.Chip, cfg.Offset)
	case KindRPIO:
		line, err = NewRPIOLine(cfg.Offset)
	case KindNone:
		logger.Warn().Msg("No output hardware configured, toggles are discarded")
		return NullLine{}, nil
	default:
		return nil, errFactory.WithData(ErrUnknownKind, cfg.Kind)
	}

	if err != nil {
		return nil, errFactory.Wrap(ErrHardwareUnavailable, err)
	}

	logger.Debug().Str("kind", cfg.Kind).Str("chip", cfg.Chip).Int("line", cfg.Offset).Msg("Output line requested")

	return line, nil
}

// NullLine accepts and discards every write.
type NullLine struct{}

func (NullLine) Set(bool) error { return nil }

func (NullLine) Close() error { return nil }
