// Package config loads the daemon configuration from flags, environment and
// a TOML file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/gpio"
	"codeberg.org/mutker/fanctl/internal/metrics"
	"codeberg.org/mutker/fanctl/internal/mqtt"
	"codeberg.org/mutker/fanctl/internal/sensor"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "FANCTL"
	DefaultConfigFile = "/etc/fanctl.toml"
	DefaultLogLevel   = "info"
	DefaultListen     = ":8013"
	DefaultMetricsDB  = "/var/lib/fanctl/metrics.db"
)

type Config struct {
	Interval     int    `mapstructure:"interval"`
	Frequency    int    `mapstructure:"frequency"`
	MaxFrequency int    `mapstructure:"max_frequency"`
	Mode         string `mapstructure:"mode"`
	Thresholds   []int  `mapstructure:"thresholds"`
	Frequencies  []int  `mapstructure:"frequencies"`

	Sensor      string `mapstructure:"sensor"`
	ThermalPath string `mapstructure:"thermal_path"`
	NVMLDevice  int    `mapstructure:"nvml_device"`

	Output   string `mapstructure:"output"`
	GPIOChip string `mapstructure:"gpio_chip"`
	GPIOLine int    `mapstructure:"gpio_line"`

	Listen string `mapstructure:"listen"`

	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`
	MQTTUsername string `mapstructure:"mqtt_username"`
	MQTTPassword string `mapstructure:"mqtt_password"`

	Metrics      bool   `mapstructure:"metrics"`
	MetricsDB    string `mapstructure:"metrics_db"`
	MetricsBatch int    `mapstructure:"metrics_batch"`
	MetricsFlush int    `mapstructure:"metrics_flush"`

	PIDFile  string `mapstructure:"pid_file"`
	LogLevel string `mapstructure:"log_level"`
}

func defaultPIDFile() string {
	return filepath.Join(os.TempDir(), "fand.pid")
}

func setDefaults(v *viper.Viper) {
	table := fan.DefaultStepTable()

	v.SetDefault("interval", int(fan.DefaultInterval/time.Second))
	v.SetDefault("frequency", int(fan.DefaultFrequency))
	v.SetDefault("max_frequency", int(fan.DefaultMaxFrequency))
	v.SetDefault("mode", fan.ModeAutomatic.String())
	v.SetDefault("thresholds", table.Thresholds())
	v.SetDefault("frequencies", table.Frequencies())
	v.SetDefault("sensor", sensor.KindThermal)
	v.SetDefault("thermal_path", sensor.DefaultThermalPath)
	v.SetDefault("nvml_device", 0)
	v.SetDefault("output", gpio.KindGPIOCDev)
	v.SetDefault("gpio_chip", gpio.DefaultChip)
	v.SetDefault("gpio_line", gpio.DefaultLine)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("mqtt_broker", "")
	v.SetDefault("mqtt_topic", mqtt.DefaultPrefix)
	v.SetDefault("mqtt_client_id", "")
	v.SetDefault("mqtt_username", "")
	v.SetDefault("mqtt_password", "")
	v.SetDefault("metrics", false)
	v.SetDefault("metrics_db", DefaultMetricsDB)
	v.SetDefault("metrics_batch", metrics.DefaultConfig().BatchSize)
	v.SetDefault("metrics_flush", metrics.DefaultConfig().FlushInterval)
	v.SetDefault("pid_file", defaultPIDFile())
	v.SetDefault("log_level", DefaultLogLevel)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fand", pflag.ContinueOnError)
	table := fan.DefaultStepTable()

	fs.String("config", "", "Path to the TOML configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Int("interval", int(fan.DefaultInterval/time.Second), "Seconds between temperature samples")
	fs.Int("frequency", int(fan.DefaultFrequency), "Initial frequency in Hz")
	fs.Int("max-frequency", int(fan.DefaultMaxFrequency), "Highest frequency accepted from clients")
	fs.String("mode", fan.ModeAutomatic.String(), "Initial mode (manual or auto)")
	fs.IntSlice("thresholds", table.Thresholds(), "Temperature thresholds in degrees Celsius")
	fs.IntSlice("frequencies", table.Frequencies(), "Frequencies for each temperature band")
	fs.String("sensor", sensor.KindThermal, "Temperature source (thermal or nvml)")
	fs.String("thermal-path", sensor.DefaultThermalPath, "Thermal zone file reporting millidegrees")
	fs.Int("nvml-device", 0, "NVML device index")
	fs.String("output", gpio.KindGPIOCDev, "Output backend (gpiocdev, rpio or none)")
	fs.String("gpio-chip", gpio.DefaultChip, "GPIO chip name")
	fs.Int("gpio-line", gpio.DefaultLine, "GPIO line offset")
	fs.String("listen", DefaultListen, "HTTP listen address, empty to disable")
	fs.String("mqtt-broker", "", "MQTT broker URL, empty to disable")
	fs.String("mqtt-topic", mqtt.DefaultPrefix, "MQTT topic prefix")
	fs.String("mqtt-client-id", "", "MQTT client id")
	fs.Bool("metrics", false, "Record samples to the metrics database")
	fs.String("metrics-db", DefaultMetricsDB, "Metrics database path")
	fs.Int("metrics-batch", metrics.DefaultConfig().BatchSize, "Samples written per batch")
	fs.Int("metrics-flush", metrics.DefaultConfig().FlushInterval, "Seconds between forced flushes")
	fs.String("pid-file", defaultPIDFile(), "PID file path")

	return fs
}

// Load reads the configuration. Precedence is flags, environment, config
// file, defaults.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	if err := godotenv.Load(o.envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	if err := readConfigFile(v, fs, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet, o options) error {
	path := o.configPath
	if flagPath, _ := fs.GetString("config"); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks ranges and names that the components would otherwise
// reject later.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	switch {
	case c.Interval <= 0:
		return errFactory.New(errors.ErrInvalidInterval)
	case c.MaxFrequency < 1:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "max_frequency must be at least 1")
	case c.Frequency < 1 || c.Frequency > c.MaxFrequency:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "frequency must be between 1 and max_frequency")
	case fan.ParseMode(c.Mode) == fan.ModeError:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mode must be manual or auto")
	}

	switch c.Sensor {
	case sensor.KindThermal, sensor.KindNVML:
	default:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "unknown sensor "+c.Sensor)
	}

	switch c.Output {
	case gpio.KindGPIOCDev, gpio.KindRPIO, gpio.KindNone:
	default:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "unknown output "+c.Output)
	}

	table, err := fan.NewStepTable(c.Thresholds, c.Frequencies)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if int(table.Max()) > c.MaxFrequency {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "frequencies exceed max_frequency")
	}

	if err := c.MetricsConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// FanConfig returns the controller policy. The step table has already been
// validated by Load.
func (c *Config) FanConfig() (fan.Config, error) {
	table, err := fan.NewStepTable(c.Thresholds, c.Frequencies)
	if err != nil {
		return fan.Config{}, err
	}

	return fan.Config{
		Interval:         time.Duration(c.Interval) * time.Second,
		DefaultFrequency: fan.Frequency(c.Frequency),
		MaxFrequency:     fan.Frequency(c.MaxFrequency),
		InitialMode:      fan.ParseMode(c.Mode),
		Table:            table,
	}, nil
}

func (c *Config) SensorConfig() sensor.Config {
	return sensor.Config{
		Kind:        c.Sensor,
		ThermalPath: c.ThermalPath,
		NVMLDevice:  c.NVMLDevice,
	}
}

func (c *Config) GPIOConfig() gpio.Config {
	return gpio.Config{
		Kind:   c.Output,
		Chip:   c.GPIOChip,
		Offset: c.GPIOLine,
	}
}

// MQTTConfig returns the bridge settings. The bridge is disabled when
// Broker is empty.
func (c *Config) MQTTConfig() mqtt.Config {
	return mqtt.Config{
		Broker:   c.MQTTBroker,
		ClientID: c.MQTTClientID,
		Username: c.MQTTUsername,
		Password: c.MQTTPassword,
		Prefix:   c.MQTTTopic,
	}
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		DBPath:        c.MetricsDB,
		BackupDir:     filepath.Join(filepath.Dir(c.MetricsDB), "backups"),
		BatchSize:     c.MetricsBatch,
		FlushInterval: c.MetricsFlush,
		Enabled:       c.Metrics,
	}
}
