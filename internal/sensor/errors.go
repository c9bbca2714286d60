package sensor

import "codeberg.org/mutker/fanctl/internal/errors"

const (
	ErrSensorUnavailable = errors.ErrSensorUnavailable
	ErrInvalidReading    = errors.ErrorCode("sensor_invalid_reading")
	ErrUnknownKind       = errors.ErrorCode("sensor_unknown_kind")

	// NVML errors
	ErrNVMLInit      = errors.ErrorCode("sensor_nvml_init_failed")
	ErrNVMLShutdown  = errors.ErrorCode("sensor_nvml_shutdown_failed")
	ErrNVMLDevice    = errors.ErrorCode("sensor_nvml_device_not_found")
	ErrNVMLReadFault = errors.ErrorCode("sensor_nvml_read_failed")
)
