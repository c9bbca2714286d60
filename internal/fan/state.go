package fan

import (
	"context"
	"sync"
	"sync/atomic"
)

// state is the control state shared by the timer callback, the thermal
// worker and attribute callers. Each field group has its own guard: the
// frequency is a lock-free atomic so the timer callback never waits, the mode
// text sits behind modeMu, and the run flag shares runMu with the channel
// that wakes the worker.
type state struct {
	frequency atomic.Int64

	modeMu   sync.Mutex
	modeText string

	runMu      sync.Mutex
	running    bool
	runChanged chan struct{}
}

func newState(freq Frequency, mode Mode) *state {
	s := &state{
		modeText:   mode.String(),
		running:    mode == ModeAutomatic,
		runChanged: make(chan struct{}),
	}
	s.frequency.Store(int64(freq))

	return s
}

func (s *state) Frequency() Frequency {
	return Frequency(s.frequency.Load())
}

// SwapFrequency stores f and returns the previous value.
func (s *state) SwapFrequency(f Frequency) Frequency {
	return Frequency(s.frequency.Swap(int64(f)))
}

func (s *state) ModeText() string {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	return s.modeText
}

func (s *state) SetModeText(text string) {
	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	s.modeText = text
}

func (s *state) RunFlag() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.running
}

// SetRunFlag updates the flag and, in the same critical section, wakes every
// goroutine watching for a change.
func (s *state) SetRunFlag(running bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.running == running {
		return
	}

	s.running = running
	close(s.runChanged)
	s.runChanged = make(chan struct{})
}

// WaitRunning blocks until the run flag is set or ctx is done. On success it
// returns a channel that is closed on the next flag change.
func (s *state) WaitRunning(ctx context.Context) (<-chan struct{}, error) {
	for {
		s.runMu.Lock()
		running, changed := s.running, s.runChanged
		s.runMu.Unlock()

		if running {
			return changed, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// whileRunning runs fn with the run flag held, and only if it is set.
func (s *state) whileRunning(fn func()) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.running {
		return false
	}
	fn()

	return true
}
