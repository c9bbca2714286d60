package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/logger"
)

const (
	defaultQueueSize = 64
	drainTimeout     = 5 * time.Second
)

// Recorder moves worker samples off the worker goroutine into a Collector.
// Observe never blocks; samples are dropped when the queue is full.
type Recorder struct {
	collector Collector
	queue     chan fan.Sample
	dropped   atomic.Uint64
	log       logger.Logger
}

func NewRecorder(collector Collector, queueSize int) *Recorder {
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}

	return &Recorder{
		collector: collector,
		queue:     make(chan fan.Sample, queueSize),
		log:       logger.New("recorder"),
	}
}

// Observe is a fan.SampleFunc.
func (r *Recorder) Observe(s fan.Sample) {
	select {
	case r.queue <- s:
	default:
		if r.dropped.Add(1)%100 == 1 {
			r.log.Warn().Uint64("dropped", r.dropped.Load()).Msg("Metrics queue full, dropping samples")
		}
	}
}

func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run records queued samples until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case s := <-r.queue:
			r.record(ctx, s)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case s := <-r.queue:
			r.record(ctx, s)
		default:
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, s fan.Sample) {
	snapshot := &Snapshot{
		Timestamp:   s.Time,
		Temperature: s.Temperature,
		Frequency:   int(s.Frequency),
		Automatic:   s.Automatic,
		SensorError: s.Err != nil,
	}

	if err := r.collector.Record(ctx, snapshot); err != nil {
		r.log.Warn().Err(err).Msg("Failed to record sample")
	}
}
