// Package mqtt carries operator commands to the daemon and publishes
// controller state over an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
)

type CommandType string

const (
	CommandMode      CommandType = "mode"
	CommandFrequency CommandType = "frequency"
	CommandSpeedup   CommandType = "speedup"
	CommandSlowdown  CommandType = "slowdown"
	CommandToggle    CommandType = "toggle"
)

// Command is the payload of the command topic.
type Command struct {
	Type CommandType `json:"type"`
	Data string      `json:"data,omitempty"`
}

// Attributes is the controller surface driven by the bridge.
type Attributes interface {
	ReadAttribute(a fan.Attribute) (string, error)
	WriteAttribute(a fan.Attribute, value string) error
	AttributeVersion(a fan.Attribute) uint64
	WaitAttribute(ctx context.Context, a fan.Attribute, since uint64) (string, uint64, error)
	MaxFrequency() fan.Frequency
}

func FormatCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func ParseCommand(payload []byte) (Command, error) {
	errFactory := errors.New()

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	switch cmd.Type {
	case CommandMode, CommandFrequency:
		if strings.TrimSpace(cmd.Data) == "" {
			return Command{}, errFactory.WithMessage(errors.ErrInvalidArgument, string(cmd.Type)+" requires data")
		}
	case CommandSpeedup, CommandSlowdown, CommandToggle:
	default:
		return Command{}, errFactory.WithData(errors.ErrUnknownCommand, cmd.Type)
	}

	return cmd, nil
}

// Apply executes cmd against attrs.
func Apply(attrs Attributes, cmd Command) error {
	errFactory := errors.New()

	switch cmd.Type {
	case CommandMode:
		return attrs.WriteAttribute(fan.AttributeMode, cmd.Data)

	case CommandFrequency:
		f, err := strconv.Atoi(strings.TrimSpace(cmd.Data))
		if err != nil {
			return errFactory.Wrap(errors.ErrInvalidArgument, err)
		}
		if f <= 0 {
			return errFactory.WithData(errors.ErrInvalidArgument, f)
		}
		return attrs.WriteAttribute(fan.AttributeFrequency, strconv.Itoa(f))

	case CommandSpeedup, CommandSlowdown:
		f, err := readFrequency(attrs)
		if err != nil {
			return err
		}
		if cmd.Type == CommandSpeedup {
			f = min(f*2, int(attrs.MaxFrequency()))
		} else {
			f = max(f/2, 1)
		}
		return attrs.WriteAttribute(fan.AttributeFrequency, strconv.Itoa(f))

	case CommandToggle:
		text, err := attrs.ReadAttribute(fan.AttributeMode)
		if err != nil {
			return err
		}
		return attrs.WriteAttribute(fan.AttributeMode, fan.ParseMode(text).Toggle().String())

	default:
		return errFactory.WithData(errors.ErrUnknownCommand, cmd.Type)
	}
}

func readFrequency(attrs Attributes) (int, error) {
	text, err := attrs.ReadAttribute(fan.AttributeFrequency)
	if err != nil {
		return 0, err
	}

	f, err := strconv.Atoi(text)
	if err != nil {
		return 0, errors.New().Wrap(errors.ErrInternal, err)
	}

	return f, nil
}
