package fan

import "strings"

// Mode selects who owns the frequency: the operator or the thermal worker.
type Mode int

const (
	// ModeError is returned by ParseMode for unrecognised text. It is never
	// the current mode of a controller.
	ModeError Mode = iota
	ModeManual
	ModeAutomatic
)

const (
	manualText = "manual"
	autoText   = "auto"
	errorText  = "error"
)

// ParseMode translates attribute text into a Mode. Surrounding whitespace is
// ignored, anything else must match exactly.
func ParseMode(text string) Mode {
	switch strings.TrimSpace(text) {
	case manualText:
		return ModeManual
	case autoText:
		return ModeAutomatic
	default:
		return ModeError
	}
}

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return manualText
	case ModeAutomatic:
		return autoText
	default:
		return errorText
	}
}

// Toggle returns the opposite mode.
func (m Mode) Toggle() Mode {
	if m == ModeAutomatic {
		return ModeManual
	}

	return ModeAutomatic
}
