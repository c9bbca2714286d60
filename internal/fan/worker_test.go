package fan

import (
	"testing"
	"time"

	"codeberg.org/mutker/fanctl/internal/logger"
	"github.com/stretchr/testify/assert"
)

type fixedSensor int

func (s fixedSensor) Temperature() (int, error) { return int(s), nil }

func newTestWorker(s *state, apply func(Frequency) bool) (*worker, *[]Sample) {
	var samples []Sample
	return &worker{
		state:    s,
		sensor:   fixedSensor(42000),
		table:    DefaultStepTable(),
		interval: time.Second,
		apply:    apply,
		onSample: func(smp Sample) { samples = append(samples, smp) },
		log:      logger.New("worker"),
	}, &samples
}

func TestWorkerSampleMarkedAutomatic(t *testing.T) {
	s := newState(1, ModeAutomatic)
	w, samples := newTestWorker(s, func(f Frequency) bool {
		s.SwapFrequency(f)
		return true
	})

	w.iterate()

	assert.Equal(t, []Sample{{
		Time:        (*samples)[0].Time,
		Temperature: 42,
		Frequency:   10,
		Automatic:   true,
	}}, *samples)
}

func TestWorkerSampleAfterSwitchToManual(t *testing.T) {
	s := newState(7, ModeManual)
	// apply refuses, as it does once the run flag has been cleared
	w, samples := newTestWorker(s, func(Frequency) bool { return false })

	w.iterate()

	assert.Len(t, *samples, 1)
	assert.False(t, (*samples)[0].Automatic)
	assert.Equal(t, Frequency(7), (*samples)[0].Frequency, "the manual frequency is recorded")
}
