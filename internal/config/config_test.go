package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/fanctl/internal/config"
	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fanctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func load(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	return config.Load(config.WithArgs(args), config.WithEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
interval = 5
frequency = 3
max_frequency = 40
mode = "manual"
thresholds = [30, 50]
frequencies = [1, 4, 8]
sensor = "nvml"
nvml_device = 1
output = "none"
mqtt_broker = "tcp://broker:1883"
mqtt_topic = "lab/fan"
metrics = true
metrics_db = "/tmp/fanctl/metrics.db"
log_level = "debug"
`)
	t.Setenv("FANCTL_CONFIG", path)

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval)
	assert.Equal(t, 3, cfg.Frequency)
	assert.Equal(t, 40, cfg.MaxFrequency)
	assert.Equal(t, "manual", cfg.Mode)
	assert.Equal(t, []int{30, 50}, cfg.Thresholds)
	assert.Equal(t, []int{1, 4, 8}, cfg.Frequencies)
	assert.Equal(t, "nvml", cfg.Sensor)
	assert.Equal(t, 1, cfg.NVMLDevice)
	assert.Equal(t, "none", cfg.Output)
	assert.Equal(t, "debug", cfg.LogLevel)

	fanCfg, err := cfg.FanConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, fanCfg.Interval)
	assert.Equal(t, fan.ModeManual, fanCfg.InitialMode)
	assert.Equal(t, fan.Frequency(8), fanCfg.Table.Lookup(50))

	mqttCfg := cfg.MQTTConfig()
	assert.Equal(t, "tcp://broker:1883", mqttCfg.Broker)
	assert.Equal(t, "lab/fan", mqttCfg.Prefix)

	metricsCfg := cfg.MetricsConfig()
	assert.True(t, metricsCfg.Enabled)
	assert.Equal(t, "/tmp/fanctl/backups", metricsCfg.BackupDir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", "")

	cfg, err := load(t)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, 1, cfg.Frequency)
	assert.Equal(t, 50, cfg.MaxFrequency)
	assert.Equal(t, "auto", cfg.Mode)
	assert.Equal(t, []int{35, 40, 45}, cfg.Thresholds)
	assert.Equal(t, []int{2, 5, 10, 20}, cfg.Frequencies)
	assert.Equal(t, "thermal", cfg.Sensor)
	assert.Equal(t, "gpiocdev", cfg.Output)
	assert.Equal(t, 10, cfg.GPIOLine)
	assert.Equal(t, ":8013", cfg.Listen)
	assert.Empty(t, cfg.MQTTBroker)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", writeConfig(t, `
This is not a valid TOML file
`))

	_, err := load(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestMissingExplicitConfigFile(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", writeConfig(t, `log_level = "invalid"`))

	_, err := load(t)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", writeConfig(t, `
log_level = "error"
interval = 7
`))
	t.Setenv("FANCTL_INTERVAL", "3")

	cfg, err := load(t, "--log-level", "debug", "--frequencies", "1,2,3,4")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "flag beats file")
	assert.Equal(t, 3, cfg.Interval, "env beats file")
	assert.Equal(t, []int{1, 2, 3, 4}, cfg.Frequencies)
}

func TestEnvFileProvidesCredentials(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", "")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FANCTL_MQTT_USERNAME=fan\nFANCTL_MQTT_PASSWORD=secret\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("FANCTL_MQTT_USERNAME")
		os.Unsetenv("FANCTL_MQTT_PASSWORD")
	})

	cfg, err := config.Load(config.WithArgs(nil), config.WithEnvFiles(envFile))
	require.NoError(t, err)
	assert.Equal(t, "fan", cfg.MQTTUsername)
	assert.Equal(t, "secret", cfg.MQTTPassword)
}

func TestValidation(t *testing.T) {
	t.Setenv("FANCTL_CONFIG", "")

	cases := map[string][]string{
		"zero interval":       {"--interval", "0"},
		"frequency above max": {"--frequency", "60"},
		"unknown mode":        {"--mode", "Auto"},
		"unknown sensor":      {"--sensor", "acpi"},
		"unknown output":      {"--output", "pwm"},
		"short table":         {"--frequencies", "1,2"},
		"table above max":     {"--max-frequency", "10"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, args...)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig) || errors.HasCode(err, errors.ErrInvalidInterval), err)
		})
	}
}
