//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpio maps the BCM2835 registers once per process.
var (
	rpioMu    sync.Mutex
	rpioUsers int
)

// RPIOLine is a Raspberry Pi pin driven through /dev/gpiomem.
type RPIOLine struct {
	pin rpio.Pin
}

// NewRPIOLine configures BCM pin as an output driven low.
func NewRPIOLine(pin int) (*RPIOLine, error) {
	rpioMu.Lock()
	defer rpioMu.Unlock()

	if rpioUsers == 0 {
		if err := rpio.Open(); err != nil {
			return nil, fmt.Errorf("open gpiomem: %w", err)
		}
	}
	rpioUsers++

	p := rpio.Pin(pin)
	p.Output()
	p.Low()

	return &RPIOLine{pin: p}, nil
}

func (l *RPIOLine) Set(on bool) error {
	if on {
		l.pin.High()
	} else {
		l.pin.Low()
	}

	return nil
}

func (l *RPIOLine) Close() error {
	rpioMu.Lock()
	defer rpioMu.Unlock()

	l.pin.Low()
	rpioUsers--
	if rpioUsers == 0 {
		if err := rpio.Close(); err != nil {
			return fmt.Errorf("close gpiomem: %w", err)
		}
	}

	return nil
}
