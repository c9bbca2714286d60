package fan

import (
	"fmt"

	"codeberg.org/mutker/fanctl/internal/errors"
)

var (
	defaultThresholds  = []int{35, 40, 45}
	defaultFrequencies = []Frequency{2, 5, 10, 20}
)

// StepTable maps a temperature to a frequency. Temperatures below
// thresholds[i] map to frequencies[i]; anything at or above the last
// threshold maps to the last frequency.
type StepTable struct {
	thresholds  []int
	frequencies []Frequency
}

// DefaultStepTable returns <35°C: 2 Hz, <40°C: 5 Hz, <45°C: 10 Hz, else 20 Hz.
func DefaultStepTable() StepTable {
	return StepTable{
		thresholds:  append([]int(nil), defaultThresholds...),
		frequencies: append([]Frequency(nil), defaultFrequencies...),
	}
}

// NewStepTable validates and builds a table. Thresholds must be strictly
// increasing and frequencies must be at least 1 and never decrease, so a
// hotter reading can never select a slower rate.
func NewStepTable(thresholds, frequencies []int) (StepTable, error) {
	errFactory := errors.New()

	if len(frequencies) != len(thresholds)+1 {
		return StepTable{}, errFactory.WithData(ErrInvalidTable,
			fmt.Sprintf("need %d frequencies for %d thresholds, got %d",
				len(thresholds)+1, len(thresholds), len(frequencies)))
	}

	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return StepTable{}, errFactory.WithData(ErrInvalidTable,
				fmt.Sprintf("threshold %d is not above %d", thresholds[i], thresholds[i-1]))
		}
	}

	freqs := make([]Frequency, len(frequencies))
	for i, f := range frequencies {
		if f < 1 {
			return StepTable{}, errFactory.WithData(ErrInvalidTable,
				fmt.Sprintf("frequency %d is below 1", f))
		}
		if i > 0 && f < frequencies[i-1] {
			return StepTable{}, errFactory.WithData(ErrInvalidTable,
				fmt.Sprintf("frequency %d is below %d", f, frequencies[i-1]))
		}
		freqs[i] = Frequency(f)
	}

	return StepTable{
		thresholds:  append([]int(nil), thresholds...),
		frequencies: freqs,
	}, nil
}

// Lookup returns the frequency for a temperature in degrees Celsius.
func (t StepTable) Lookup(celsius int) Frequency {
	for i, threshold := range t.thresholds {
		if celsius < threshold {
			return t.frequencies[i]
		}
	}

	return t.frequencies[len(t.frequencies)-1]
}

func (t StepTable) Thresholds() []int {
	return append([]int(nil), t.thresholds...)
}

func (t StepTable) Frequencies() []int {
	out := make([]int, len(t.frequencies))
	for i, f := range t.frequencies {
		out[i] = int(f)
	}
	return out
}

// Max returns the highest frequency the table can select.
func (t StepTable) Max() Frequency {
	return t.frequencies[len(t.frequencies)-1]
}

// RoundMillidegrees converts millidegrees to degrees, rounding half up.
func RoundMillidegrees(milli int) int {
	return (milli + 500) / 1000
}
