package fan

import "time"

// Sensor reports the current temperature in millidegrees Celsius.
type Sensor interface {
	Temperature() (int, error)
}

// Line drives the actuated output. Set is called from the timer callback and
// must not block.
type Line interface {
	Set(on bool) error
}

// Frequency is a toggle rate in Hz. One full output cycle takes two toggles.
type Frequency int

// Sample describes one thermal worker iteration.
type Sample struct {
	Time        time.Time
	Temperature int // rounded degrees Celsius, zero when Err is set
	Frequency   Frequency
	Automatic   bool // false when a switch to manual overtook the iteration
	Err         error
}

// SampleFunc observes worker iterations. It runs on the worker goroutine and
// must return quickly.
type SampleFunc func(Sample)
