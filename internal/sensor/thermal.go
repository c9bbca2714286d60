package sensor

import (
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/fanctl/internal/errors"
)

// ThermalZone reads a sysfs thermal zone temp file, which holds a single
// integer in millidegrees Celsius.
type ThermalZone struct {
	path string
}

// NewThermalZone checks that path is readable once and returns the source.
func NewThermalZone(path string) (*ThermalZone, error) {
	z := &ThermalZone{path: path}
	if _, err := z.Temperature(); err != nil {
		return nil, err
	}

	return z, nil
}

func (z *ThermalZone) Temperature() (int, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(z.path)
	if err != nil {
		return 0, errFactory.Wrap(ErrSensorUnavailable, err)
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidReading, err)
	}

	return milli, nil
}

func (z *ThermalZone) Path() string {
	return z.path
}

func (*ThermalZone) Close() error {
	return nil
}
