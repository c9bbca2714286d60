package sensor_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZone(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestThermalZone(t *testing.T) {
	path := writeZone(t, "42500\n")

	src, err := sensor.Open(sensor.Config{Kind: sensor.KindThermal, ThermalPath: path})
	require.NoError(t, err)
	defer src.Close()

	require.IsType(t, &sensor.ThermalZone{}, src)
	assert.Equal(t, path, src.(*sensor.ThermalZone).Path())

	milli, err := src.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 42500, milli)

	require.NoError(t, os.WriteFile(path, []byte("38000\n"), 0o600))
	milli, err = src.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 38000, milli)
}

func TestThermalZoneMissing(t *testing.T) {
	_, err := sensor.NewThermalZone(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrSensorUnavailable))
}

func TestThermalZoneGarbage(t *testing.T) {
	path := writeZone(t, "hot\n")

	_, err := sensor.NewThermalZone(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrInvalidReading))
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := sensor.Open(sensor.Config{Kind: "thermocouple"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrUnknownKind))
}

func TestFake(t *testing.T) {
	f := sensor.NewFake(30000)

	milli, err := f.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 30000, milli)

	f.Fail(assert.AnError)
	_, err = f.Temperature()
	assert.ErrorIs(t, err, assert.AnError)

	f.Set(45000)
	milli, err = f.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 45000, milli)
	assert.Equal(t, 3, f.Reads())
}
