package metrics

import (
	"context"
	"time"
)

// Collector records controller samples.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository stores snapshots.
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is one worker iteration as stored in the history.
type Snapshot struct {
	Timestamp   time.Time
	Temperature int // degrees Celsius
	Frequency   int // Hz
	Automatic   bool
	SensorError bool
}
