package fan

import (
	"context"
	"strconv"
	"strings"

	"codeberg.org/mutker/fanctl/internal/errors"
)

// Attribute names an externally visible value.
type Attribute string

const (
	AttributeFrequency Attribute = "frequency"
	AttributeMode      Attribute = "mode"
)

// Attributes lists every attribute a controller exposes.
func Attributes() []Attribute {
	return []Attribute{AttributeFrequency, AttributeMode}
}

// ParseAttribute validates an attribute name.
func ParseAttribute(name string) (Attribute, error) {
	switch a := Attribute(name); a {
	case AttributeFrequency, AttributeMode:
		return a, nil
	default:
		return "", errUnknownAttribute(name)
	}
}

func errUnknownAttribute(name string) error {
	return errors.New().WithData(ErrUnknownAttribute, name)
}

// ReadAttribute returns the attribute value as text.
func (c *Controller) ReadAttribute(a Attribute) (string, error) {
	switch a {
	case AttributeFrequency:
		return strconv.Itoa(int(c.Frequency())), nil
	case AttributeMode:
		return c.state.ModeText(), nil
	default:
		return "", errUnknownAttribute(string(a))
	}
}

// WriteAttribute parses value and applies it.
func (c *Controller) WriteAttribute(a Attribute, value string) error {
	switch a {
	case AttributeFrequency:
		f, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return errors.New().Wrap(ErrInvalidArgument, err)
		}
		return c.SetFrequency(f)
	case AttributeMode:
		return c.RequestMode(value)
	default:
		return errUnknownAttribute(string(a))
	}
}

// AttributeVersion returns the change counter of a.
func (c *Controller) AttributeVersion(a Attribute) uint64 {
	return c.notifier.Version(a)
}

// WaitAttribute blocks until a changes after version since and returns the
// new value and version.
func (c *Controller) WaitAttribute(ctx context.Context, a Attribute, since uint64) (string, uint64, error) {
	version, err := c.notifier.Wait(ctx, a, since)
	if err != nil {
		return "", since, err
	}

	value, err := c.ReadAttribute(a)
	if err != nil {
		return "", since, err
	}

	return value, version, nil
}
