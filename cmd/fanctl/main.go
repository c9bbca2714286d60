// Command fanctl sends mode and frequency commands to a running fand.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
	"codeberg.org/mutker/fanctl/internal/mqtt"
	"github.com/chzyer/readline"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultBroker  = "tcp://localhost:1883"
	defaultTimeout = 5 * time.Second
)

func main() {
	var (
		act     actions
		shell   bool
		timeout time.Duration
	)

	fs := pflag.NewFlagSet("fanctl", pflag.ContinueOnError)
	fs.StringVar(&act.mode, "mode", "", "Set the mode (manual or auto)")
	fs.IntVar(&act.freq, "freq", 0, "Set the frequency in Hz (manual mode only)")
	fs.BoolVar(&act.faster, "faster", false, "Double the frequency")
	fs.BoolVar(&act.slower, "slower", false, "Halve the frequency")
	fs.BoolVar(&act.toggle, "toggle", false, "Switch between manual and auto")
	fs.BoolVar(&shell, "shell", false, "Start an interactive shell")
	fs.DurationVar(&timeout, "timeout", defaultTimeout, "Time to wait for the broker")
	fs.String("broker", defaultBroker, "MQTT broker URL")
	fs.String("topic", mqtt.DefaultPrefix, "MQTT topic prefix")
	fs.String("log-level", "warning", "Log level")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	act.freqSet = fs.Changed("freq")

	// credentials usually live in .env next to the daemon's
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FANCTL")
	v.AutomaticEnv()
	_ = v.BindPFlag("mqtt_broker", fs.Lookup("broker"))
	_ = v.BindPFlag("mqtt_topic", fs.Lookup("topic"))
	_ = v.BindPFlag("log_level", fs.Lookup("log-level"))

	logger.Init(v.GetString("log_level"), false)

	cfg := mqtt.Config{
		Broker:   v.GetString("mqtt_broker"),
		ClientID: fmt.Sprintf("fanctl-%d", os.Getpid()),
		Username: v.GetString("mqtt_username"),
		Password: v.GetString("mqtt_password"),
		Prefix:   v.GetString("mqtt_topic"),
	}

	if !shell && act.empty() {
		fmt.Fprintln(os.Stderr, "fanctl: no action given")
		fmt.Fprint(os.Stderr, fs.FlagUsages())
		os.Exit(2)
	}

	var cmds []mqtt.Command
	if !act.empty() {
		var err error
		if cmds, err = act.commands(); err != nil {
			fmt.Fprintf(os.Stderr, "fanctl: %v\n", err)
			os.Exit(2)
		}
	}

	sender, err := mqtt.Dial(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fanctl: %v\n", err)
		os.Exit(1)
	}
	defer sender.Close()

	for _, cmd := range cmds {
		if err := send(sender, cmd, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "fanctl: %v\n", err)
			sender.Close()
			os.Exit(1)
		}
	}

	if shell {
		if err := runShell(sender, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "fanctl: %v\n", err)
		}
	}
}

func send(sender *mqtt.Sender, cmd mqtt.Command, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sender.Send(ctx, cmd); err != nil {
		return err
	}
	logger.Debug().Str("type", string(cmd.Type)).Str("data", cmd.Data).Msg("Command sent")

	return nil
}

func runShell(sender *mqtt.Sender, timeout time.Duration) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fanctl> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "Commands: mode <manual|auto>, freq <n>, faster, slower, toggle, quit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			return nil // EOF
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, quit, err := parseShellLine(line)
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "%v\n", err)
			continue
		}

		if err := send(sender, cmd, timeout); err != nil {
			fmt.Fprintf(rl.Stderr(), "%v\n", err)
		}
	}
}

func historyFile() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}

	dir := filepath.Join(cacheDir, "fanctl")
	_ = os.MkdirAll(dir, 0o750)

	return filepath.Join(dir, "history")
}
