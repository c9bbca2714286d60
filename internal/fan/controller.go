package fan

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/logger"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultFrequency    = Frequency(1)
	DefaultMaxFrequency = Frequency(50)
)

// Config holds the controller policy.
type Config struct {
	Interval         time.Duration
	DefaultFrequency Frequency
	MaxFrequency     Frequency
	InitialMode      Mode
	Table            StepTable
	OnSample         SampleFunc
}

func DefaultConfig() Config {
	return Config{
		Interval:         DefaultInterval,
		DefaultFrequency: DefaultFrequency,
		MaxFrequency:     DefaultMaxFrequency,
		InitialMode:      ModeAutomatic,
		Table:            DefaultStepTable(),
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.Interval <= 0:
		return errFactory.WithMessage(ErrInvalidConfig, "interval must be positive")
	case c.MaxFrequency < 1:
		return errFactory.WithMessage(ErrInvalidConfig, "max frequency must be at least 1")
	case c.DefaultFrequency < 1 || c.DefaultFrequency > c.MaxFrequency:
		return errFactory.WithMessage(ErrInvalidConfig, "default frequency out of range")
	case c.InitialMode != ModeManual && c.InitialMode != ModeAutomatic:
		return errFactory.WithMessage(ErrInvalidConfig, "initial mode must be manual or auto")
	case len(c.Table.frequencies) == 0:
		return errFactory.New(ErrInvalidTable)
	}

	return nil
}

// Controller couples the thermal worker, the actuation timer and the mode
// state machine around one shared state.
type Controller struct {
	cfg      Config
	state    *state
	timer    *actuator
	notifier *notifier
	worker   *worker
	log      logger.Logger

	// transition serializes mode changes and manual frequency writes.
	transition sync.Mutex

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds a stopped controller. The line is not touched until Start.
func New(sensor Sensor, line Line, cfg Config) (*Controller, error) {
	errFactory := errors.New()

	if sensor == nil || line == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "sensor and line are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		state:    newState(cfg.DefaultFrequency, cfg.InitialMode),
		notifier: newNotifier(),
		log:      logger.New("controller"),
	}
	c.timer = newActuator(c.state, line, c.notifier.Notify)
	c.worker = &worker{
		state:    c.state,
		sensor:   sensor,
		table:    cfg.Table,
		interval: cfg.Interval,
		apply:    c.applyAutomatic,
		onSample: cfg.OnSample,
		log:      logger.New("worker"),
	}

	return c, nil
}

// Start deasserts the line, arms the timer at the default frequency and
// launches the thermal worker in the configured initial mode.
func (c *Controller) Start(ctx context.Context) error {
	errFactory := errors.New()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.done != nil {
		return errFactory.New(ErrAlreadyStarted)
	}

	if err := c.timer.deassert(); err != nil {
		return errFactory.Wrap(ErrHardwareUnavailable, err)
	}

	c.transition.Lock()
	if c.state.SwapFrequency(c.cfg.DefaultFrequency) != c.cfg.DefaultFrequency {
		c.notifier.Notify(AttributeFrequency)
	}
	c.setMode(c.cfg.InitialMode)
	c.timer.arm()
	c.transition.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		c.worker.run(ctx)
	}()

	c.log.Info().
		Int("frequency", int(c.cfg.DefaultFrequency)).
		Str("mode", c.cfg.InitialMode.String()).
		Msg("Controller started")

	return nil
}

// Stop joins the worker, disarms the timer and leaves the line deasserted.
func (c *Controller) Stop() error {
	errFactory := errors.New()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.done == nil {
		return errFactory.New(ErrNotStarted)
	}

	c.cancel()
	<-c.done
	c.cancel, c.done = nil, nil

	c.timer.disarm()
	c.state.SetRunFlag(false)

	if err := c.timer.deassert(); err != nil {
		return errFactory.Wrap(ErrHardwareUnavailable, err)
	}

	c.log.Info().Msg("Controller stopped")

	return nil
}

// Frequency returns the current target frequency.
func (c *Controller) Frequency() Frequency {
	return c.state.Frequency()
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return ParseMode(c.state.ModeText())
}

// Running reports whether the thermal worker is allowed to sample.
func (c *Controller) Running() bool {
	return c.state.RunFlag()
}

// Period returns the currently armed toggle period.
func (c *Controller) Period() time.Duration {
	return c.timer.Period()
}

// Level returns the last value written to the line by the timer.
func (c *Controller) Level() bool {
	return c.timer.Level()
}

// Toggles returns how many times the timer has toggled the line.
func (c *Controller) Toggles() uint64 {
	return c.timer.toggles.Load()
}

// LineFailures returns how many line writes failed in the timer callback.
func (c *Controller) LineFailures() uint64 {
	return c.timer.failures.Load()
}

// MaxFrequency returns the highest frequency accepted from operators.
func (c *Controller) MaxFrequency() Frequency {
	return c.cfg.MaxFrequency
}

// SetFrequency applies an operator frequency. It is only accepted in manual
// mode; 0 is raised to 1.
func (c *Controller) SetFrequency(f int) error {
	errFactory := errors.New()

	if f < 0 || Frequency(f) > c.cfg.MaxFrequency {
		return errFactory.WithData(ErrInvalidArgument, f)
	}
	if f < 1 {
		f = 1
	}

	c.transition.Lock()
	defer c.transition.Unlock()

	if c.Mode() != ModeManual {
		return errFactory.New(ErrModeConflict)
	}

	c.timer.Reprogram(Frequency(f))
	c.log.Info().Int("frequency", f).Msg("Frequency set")

	return nil
}

// RequestMode parses text and switches to that mode.
func (c *Controller) RequestMode(text string) error {
	mode := ParseMode(text)
	if mode == ModeError {
		return errors.New().WithData(ErrInvalidArgument, text)
	}

	return c.SetMode(mode)
}

// SetMode switches between manual and automatic control. Requesting the
// current mode is a no-op.
func (c *Controller) SetMode(mode Mode) error {
	if mode != ModeManual && mode != ModeAutomatic {
		return errors.New().WithData(ErrInvalidArgument, mode.String())
	}

	c.transition.Lock()
	defer c.transition.Unlock()

	if c.Mode() == mode {
		return nil
	}
	c.setMode(mode)
	c.log.Info().Str("mode", mode.String()).Msg("Mode changed")

	return nil
}

func (c *Controller) setMode(mode Mode) {
	prev := c.Mode()

	switch mode {
	case ModeAutomatic:
		c.state.SetRunFlag(true)
	case ModeManual:
		// Waits for an in-flight worker update, so the worker cannot
		// overwrite the frequency re-applied below.
		c.state.SetRunFlag(false)
		c.timer.Reprogram(c.state.Frequency())
	}

	c.state.SetModeText(mode.String())
	if prev != mode {
		c.notifier.Notify(AttributeMode)
	}
}

func (c *Controller) applyAutomatic(f Frequency) bool {
	return c.state.whileRunning(func() {
		c.timer.Reprogram(f)
	})
}
