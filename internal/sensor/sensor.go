// Package sensor provides temperature sources reporting millidegrees Celsius.
package sensor

import (
	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
)

const (
	KindThermal = "thermal"
	KindNVML    = "nvml"

	DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"
)

// Source is a temperature sensor that holds resources until closed.
type Source interface {
	Temperature() (int, error)
	Close() error
}

type Config struct {
	Kind        string
	ThermalPath string
	NVMLDevice  int
}

func DefaultConfig() Config {
	return Config{
		Kind:        KindThermal,
		ThermalPath: DefaultThermalPath,
	}
}

// Open returns the source selected by cfg.Kind.
func Open(cfg Config) (Source, error) {
	switch cfg.Kind {
	case KindThermal, "":
		path := cfg.ThermalPath
		if path == "" {
			path = DefaultThermalPath
		}
		zone, err := NewThermalZone(path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", zone.Path()).Msg("Using thermal zone temperature sensor")
		return zone, nil
	case KindNVML:
		return NewNVML(cfg.NVMLDevice)
	default:
		return nil, errors.New().WithData(ErrUnknownKind, cfg.Kind)
	}
}
