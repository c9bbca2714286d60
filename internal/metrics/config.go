package metrics

import "codeberg.org/mutker/fanctl/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm   = 0o755
	defaultDBPath    = "/var/lib/fanctl/metrics.db"
	defaultBackupDir = "/var/lib/fanctl/backups"

	defaultBatchSize     = 30
	defaultFlushInterval = 60
)

type Config struct {
	DBPath        string
	BackupDir     string
	BatchSize     int
	FlushInterval int // seconds
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BackupDir:     defaultBackupDir,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate storage settings if metrics is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 || c.FlushInterval < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "batch size must be positive and flush interval not negative")
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
