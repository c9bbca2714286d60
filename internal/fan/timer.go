package fan

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Period returns the delay between two toggles at frequency f.
func Period(f Frequency) time.Duration {
	if f < 1 {
		f = 1
	}

	return time.Second / time.Duration(2*f)
}

// actuator is the self-rearming timer that toggles the output line. fire runs
// on the runtime's timer goroutine and only touches atomics and the line.
type actuator struct {
	state  *state
	line   Line
	notify func(Attribute)

	timer    atomic.Pointer[time.Timer]
	period   atomic.Int64
	stopped  atomic.Bool
	inflight atomic.Int32

	level    atomic.Bool
	toggles  atomic.Uint64
	failures atomic.Uint64
}

func newActuator(s *state, line Line, notify func(Attribute)) *actuator {
	a := &actuator{
		state:  s,
		line:   line,
		notify: notify,
	}
	a.stopped.Store(true)
	a.period.Store(int64(Period(s.Frequency())))

	return a
}

// arm starts toggling at the current frequency.
func (a *actuator) arm() {
	period := Period(a.state.Frequency())
	a.period.Store(int64(period))
	a.stopped.Store(false)
	a.timer.Store(time.AfterFunc(period, a.fire))
}

// Reprogram stores f, re-arms the timer for its period and notifies
// frequency readers when the value changed.
func (a *actuator) Reprogram(f Frequency) {
	if f < 1 {
		f = 1
	}

	prev := a.state.SwapFrequency(f)
	a.reset(f)

	if prev != f {
		a.notify(AttributeFrequency)
	}
}

// rearm is the callback's reprogram: the frequency it reads is already
// stored, so there is nothing to notify.
func (a *actuator) rearm() {
	a.reset(a.state.Frequency())
}

func (a *actuator) reset(f Frequency) {
	period := Period(f)
	a.period.Store(int64(period))

	if a.stopped.Load() {
		return
	}
	if t := a.timer.Load(); t != nil {
		t.Reset(period)
	}
}

func (a *actuator) fire() {
	a.inflight.Add(1)
	defer a.inflight.Add(-1)

	if a.stopped.Load() {
		return
	}

	a.rearm()

	on := !a.level.Load()
	a.level.Store(on)
	a.toggles.Add(1)
	if err := a.line.Set(on); err != nil {
		a.failures.Add(1)
	}
}

// disarm stops the timer and waits for a callback already in flight.
func (a *actuator) disarm() {
	a.stopped.Store(true)
	if t := a.timer.Load(); t != nil {
		t.Stop()
	}
	for a.inflight.Load() > 0 {
		runtime.Gosched()
	}
}

func (a *actuator) deassert() error {
	a.level.Store(false)
	return a.line.Set(false)
}

func (a *actuator) Period() time.Duration {
	return time.Duration(a.period.Load())
}

func (a *actuator) Level() bool {
	return a.level.Load()
}
