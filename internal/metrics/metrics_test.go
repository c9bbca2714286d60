package metrics

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/logger"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	return Config{
		DBPath:        filepath.Join(dir, "metrics.db"),
		BackupDir:     filepath.Join(dir, "backups"),
		BatchSize:     2,
		FlushInterval: 0,
		Enabled:       true,
	}
}

func countSamples(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n))
	return n
}

func TestRepositoryBatchesAndFlushesOnClose(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.New("test"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, repo.Record(&Snapshot{Timestamp: now, Temperature: 41, Frequency: 5, Automatic: true}))
	require.NoError(t, repo.Record(&Snapshot{Timestamp: now, Temperature: 0, Frequency: 5, Automatic: true, SensorError: true}))
	require.NoError(t, repo.Record(&Snapshot{Timestamp: now, Temperature: 47, Frequency: 20, Automatic: true}))

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "close is idempotent")

	assert.Equal(t, 3, countSamples(t, cfg.DBPath))
}

func TestRepositoryBoundsBufferWhileDatabaseFails(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.New("test"))
	require.NoError(t, err)
	r := repo.(*repository)
	require.NoError(t, r.db.Close())

	for i := 1; i <= 50; i++ {
		_ = repo.Record(&Snapshot{Timestamp: time.Now(), Frequency: i, Automatic: true})
	}

	r.mu.Lock()
	require.Len(t, r.buffer, cfg.BatchSize*maxBufferedBatches)
	assert.Equal(t, 31, r.buffer[0].Frequency, "oldest samples are dropped first")
	assert.Equal(t, 50, r.buffer[len(r.buffer)-1].Frequency)
	assert.Equal(t, uint64(30), r.dropped)
	r.mu.Unlock()

	_ = repo.Close()
}

func TestSchemaMismatchIsBackedUp(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.New("test"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err = NewRepository(cfg, logger.New("test"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "metrics_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	db, err = sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "never.db")

	svc, err := NewService(cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Record(context.Background(), &Snapshot{}))
	require.NoError(t, svc.Close())

	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err))
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(t)
	assert.NoError(t, cfg.Validate())

	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = testConfig(t)
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())
}

type memCollector struct {
	got chan *Snapshot
}

func (m *memCollector) Record(_ context.Context, s *Snapshot) error {
	m.got <- s
	return nil
}

func (*memCollector) Close() error { return nil }

func TestRecorderForwardsSamples(t *testing.T) {
	col := &memCollector{got: make(chan *Snapshot, 4)}
	rec := NewRecorder(col, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx)
	}()

	ts := time.Unix(1700000000, 0)
	rec.Observe(fan.Sample{Time: ts, Temperature: 42, Frequency: 10, Automatic: true})
	rec.Observe(fan.Sample{Time: ts, Frequency: 10, Automatic: true, Err: errors.New("no sensor")})
	rec.Observe(fan.Sample{Time: ts, Temperature: 44, Frequency: 7})

	first := <-col.got
	assert.Equal(t, &Snapshot{Timestamp: ts, Temperature: 42, Frequency: 10, Automatic: true}, first)
	second := <-col.got
	assert.True(t, second.SensorError)
	third := <-col.got
	assert.Equal(t, &Snapshot{Timestamp: ts, Temperature: 44, Frequency: 7, Automatic: false}, third)

	cancel()
	<-done
}

func TestRecorderDropsWhenFull(t *testing.T) {
	rec := NewRecorder(&memCollector{got: make(chan *Snapshot, 1)}, 1)

	rec.Observe(fan.Sample{Frequency: 1})
	rec.Observe(fan.Sample{Frequency: 2})
	rec.Observe(fan.Sample{Frequency: 3})

	assert.Equal(t, uint64(2), rec.Dropped())
}

type lineStats struct{}

func (lineStats) Toggles() uint64      { return 7 }
func (lineStats) LineFailures() uint64 { return 1 }

func gather(t *testing.T, e *Exporter) map[string]*dto.Metric {
	t.Helper()

	families, err := e.Registry().Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.Metric)
	for _, mf := range families {
		if len(mf.GetMetric()) > 0 {
			out[mf.GetName()] = mf.GetMetric()[0]
		}
	}
	return out
}

func TestExporter(t *testing.T) {
	e := NewExporter(lineStats{})

	e.SetMode(fan.ModeAutomatic)
	e.Observe(fan.Sample{Temperature: 43, Frequency: 10})
	e.Observe(fan.Sample{Frequency: 10, Err: errors.New("gone")})

	m := gather(t, e)
	assert.Equal(t, 10.0, m["fanctl_frequency_hertz"].GetGauge().GetValue())
	assert.Equal(t, 43.0, m["fanctl_temperature_celsius"].GetGauge().GetValue())
	assert.Equal(t, 1.0, m["fanctl_automatic_mode"].GetGauge().GetValue())
	assert.Equal(t, 1.0, m["fanctl_sensor_errors_total"].GetCounter().GetValue())
	assert.Equal(t, 2.0, m["fanctl_samples_total"].GetCounter().GetValue())
	assert.Equal(t, 7.0, m["fanctl_line_toggles_total"].GetCounter().GetValue())
	assert.Equal(t, 1.0, m["fanctl_line_failures_total"].GetCounter().GetValue())

	e.SetMode(fan.ModeManual)
	e.SetFrequency(3)
	m = gather(t, e)
	assert.Equal(t, 0.0, m["fanctl_automatic_mode"].GetGauge().GetValue())
	assert.Equal(t, 3.0, m["fanctl_frequency_hertz"].GetGauge().GetValue())
}
