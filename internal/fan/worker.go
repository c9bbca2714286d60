package fan

import (
	"context"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
)

// worker samples the sensor while the run flag is set and pushes the mapped
// frequency through apply.
type worker struct {
	state    *state
	sensor   Sensor
	table    StepTable
	interval time.Duration
	apply    func(Frequency) bool
	onSample SampleFunc
	log      logger.Logger
}

func (w *worker) run(ctx context.Context) {
	w.log.Debug().Dur("interval", w.interval).Msg("Thermal worker started")
	defer w.log.Debug().Msg("Thermal worker stopped")

	for {
		changed, err := w.state.WaitRunning(ctx)
		if err != nil {
			return
		}

		w.iterate()

		if !w.sleep(ctx, changed) {
			return
		}
	}
}

// sleep waits one interval. A run flag change cuts it short so a return to
// automatic mode is picked up without waiting out the interval.
func (w *worker) sleep(ctx context.Context, changed <-chan struct{}) bool {
	t := time.NewTimer(w.interval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-changed:
	case <-t.C:
	}

	return true
}

func (w *worker) iterate() {
	now := time.Now()

	raw, err := w.sensor.Temperature()
	if err != nil {
		err = errors.New().Wrap(ErrSensorUnavailable, err)
		w.log.Warn().Err(err).Msg("Temperature unavailable, skipping iteration")
		w.report(Sample{Time: now, Frequency: w.state.Frequency(), Automatic: w.state.RunFlag(), Err: err})
		return
	}

	celsius := RoundMillidegrees(raw)
	target := w.table.Lookup(celsius)
	current := w.state.Frequency()

	w.log.Debug().
		Int("temperature", celsius).
		Int("current", int(current)).
		Int("target", int(target)).
		Msg("")

	automatic := true
	if target != current {
		if w.apply(target) {
			w.log.Info().
				Int("temperature", celsius).
				Int("frequency", int(target)).
				Msg("Frequency adjusted")
			current = target
		} else {
			automatic = false
			current = w.state.Frequency()
		}
	}

	w.report(Sample{Time: now, Temperature: celsius, Frequency: current, Automatic: automatic})
}

func (w *worker) report(s Sample) {
	if w.onSample != nil {
		w.onSample(s)
	}
}
