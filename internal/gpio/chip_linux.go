//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ChipLine is an output line on a GPIO character device.
type ChipLine struct {
	line *gpiocdev.Line
}

// NewChipLine requests offset on chip as an output driven low.
func NewChipLine(chip string, offset int) (*ChipLine, error) {
	if chip == "" {
		chip = DefaultChip
	}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}

	return &ChipLine{line: line}, nil
}

func (l *ChipLine) Set(on bool) error {
	value := 0
	if on {
		value = 1
	}

	return l.line.SetValue(value)
}

// Close drives the line low and releases it.
func (l *ChipLine) Close() error {
	var errs []error

	if err := l.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("deassert line: %w", err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
