package fan

import "codeberg.org/mutker/fanctl/internal/errors"

const (
	// Request errors
	ErrInvalidArgument  = errors.ErrInvalidArgument
	ErrModeConflict     = errors.ErrModeConflict
	ErrUnknownAttribute = errors.ErrUnknownAttribute

	// Collaborator errors
	ErrSensorUnavailable   = errors.ErrSensorUnavailable
	ErrHardwareUnavailable = errors.ErrHardwareUnavailable

	// Lifecycle errors
	ErrAlreadyStarted = errors.ErrorCode("controller_already_started")
	ErrNotStarted     = errors.ErrorCode("controller_not_started")

	// Configuration errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidTable  = errors.ErrorCode("invalid_step_table")
)
