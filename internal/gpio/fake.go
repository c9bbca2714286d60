package gpio

import (
	"sync"
	"time"
)

// Write is one value recorded by Fake.
type Write struct {
	At time.Time
	On bool
}

// Fake records every write for tests. It is safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	writes []Write
	err    error
	closed bool
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, Write{At: time.Now(), On: on})

	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Fail makes subsequent writes return err; nil clears it.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

// Writes returns a copy of the recorded writes.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Write(nil), f.writes...)
}

// Value returns the last written value, false if nothing was written.
func (f *Fake) Value() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.writes) == 0 {
		return false
	}

	return f.writes[len(f.writes)-1].On
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}
