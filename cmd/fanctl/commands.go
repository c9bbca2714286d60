package main

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/mqtt"
)

// actions are the requested operations. freqSet tells an explicit
// --freq=0 apart from no --freq at all.
type actions struct {
	mode    string
	freq    int
	freqSet bool
	faster  bool
	slower  bool
	toggle  bool
}

func (a actions) empty() bool {
	return a.mode == "" && !a.freqSet && !a.faster && !a.slower && !a.toggle
}

// commands validates the requested actions and returns them in the order
// they are sent: mode first, so a frequency can follow a switch to manual.
func (a actions) commands() ([]mqtt.Command, error) {
	errFactory := errors.New()

	var cmds []mqtt.Command

	if a.mode != "" {
		cmd, err := modeCommand(a.mode)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	if a.toggle {
		cmds = append(cmds, mqtt.Command{Type: mqtt.CommandToggle})
	}
	if a.freqSet {
		cmd, err := frequencyCommand(strconv.Itoa(a.freq))
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	if a.faster {
		cmds = append(cmds, mqtt.Command{Type: mqtt.CommandSpeedup})
	}
	if a.slower {
		cmds = append(cmds, mqtt.Command{Type: mqtt.CommandSlowdown})
	}

	if len(cmds) == 0 {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "no action given")
	}

	return cmds, nil
}

func modeCommand(text string) (mqtt.Command, error) {
	if fan.ParseMode(text) == fan.ModeError {
		return mqtt.Command{}, errors.New().WithMessage(errors.ErrInvalidArgument,
			"mode must be "+fan.ModeManual.String()+" or "+fan.ModeAutomatic.String())
	}

	return mqtt.Command{Type: mqtt.CommandMode, Data: strings.TrimSpace(text)}, nil
}

func frequencyCommand(text string) (mqtt.Command, error) {
	f, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || f < 1 || f > int(fan.DefaultMaxFrequency) {
		return mqtt.Command{}, errors.New().WithMessage(errors.ErrInvalidArgument,
			"frequency must be between 1 and "+strconv.Itoa(int(fan.DefaultMaxFrequency)))
	}

	return mqtt.Command{Type: mqtt.CommandFrequency, Data: strconv.Itoa(f)}, nil
}

// parseShellLine turns one shell line into a command. quit is set for
// "quit" and "exit".
func parseShellLine(line string) (cmd mqtt.Command, quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return mqtt.Command{}, false, errors.New().WithMessage(errors.ErrInvalidArgument, "empty command")
	}

	arg := func() (string, error) {
		if len(fields) != 2 {
			return "", errors.New().WithMessage(errors.ErrInvalidArgument, fields[0]+" takes one argument")
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "quit", "exit":
		return mqtt.Command{}, true, nil
	case "mode":
		text, err := arg()
		if err != nil {
			return mqtt.Command{}, false, err
		}
		cmd, err = modeCommand(text)
		return cmd, false, err
	case "freq", "frequency":
		text, err := arg()
		if err != nil {
			return mqtt.Command{}, false, err
		}
		cmd, err = frequencyCommand(text)
		return cmd, false, err
	case "faster":
		return mqtt.Command{Type: mqtt.CommandSpeedup}, false, nil
	case "slower":
		return mqtt.Command{Type: mqtt.CommandSlowdown}, false, nil
	case "toggle":
		return mqtt.Command{Type: mqtt.CommandToggle}, false, nil
	default:
		return mqtt.Command{}, false, errors.New().WithData(errors.ErrUnknownCommand, fields[0])
	}
}
