package sensor

import "sync"

// Fake is a scripted Source for tests.
type Fake struct {
	mu    sync.Mutex
	milli int
	err   error
	reads int
}

func NewFake(milli int) *Fake {
	return &Fake{milli: milli}
}

// Set changes the reported temperature and clears any failure.
func (f *Fake) Set(milli int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.milli = milli
	f.err = nil
}

// Fail makes subsequent reads return err.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *Fake) Temperature() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.err != nil {
		return 0, f.err
	}

	return f.milli, nil
}

// Reads returns how many times Temperature was called.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

func (*Fake) Close() error {
	return nil
}
