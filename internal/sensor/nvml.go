package sensor

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const milliPerDegree = 1000

// NVML reads the core temperature of an NVIDIA GPU.
type NVML struct {
	mu          sync.Mutex
	device      nvml.Device
	initialized bool
}

func newNVMLError(ret nvml.Return) error {
	return fmt.Errorf("nvml: %s", nvml.ErrorString(ret))
}

// NewNVML initialises NVML and opens the device at index.
func NewNVML(index int) (*NVML, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrNVMLInit, newNVMLError(ret))
	}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		_ = nvml.Shutdown()
		return nil, errFactory.Wrap(ErrNVMLDevice, newNVMLError(ret))
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		logger.Info().Str("gpu", name).Int("index", index).Msg("Using GPU temperature sensor")
	} else {
		logger.Warn().Msgf("Failed to get GPU name: %v", nvml.ErrorString(ret))
	}

	return &NVML{device: device, initialized: true}, nil
}

func (n *NVML) Temperature() (int, error) {
	errFactory := errors.New()

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return 0, errFactory.New(ErrSensorUnavailable)
	}

	temp, ret := n.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return 0, errFactory.Wrap(ErrNVMLReadFault, newNVMLError(ret))
	}

	return int(temp) * milliPerDegree, nil
}

func (n *NVML) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		return nil
	}
	n.initialized = false

	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return errors.New().Wrap(ErrNVMLShutdown, newNVMLError(ret))
	}

	return nil
}
