package metrics

import (
	"codeberg.org/mutker/fanctl/internal/fan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "fanctl"

// LineStats exposes the actuation counters of a running controller.
type LineStats interface {
	Toggles() uint64
	LineFailures() uint64
}

// Exporter publishes the live controller state as Prometheus metrics.
type Exporter struct {
	registry     *prometheus.Registry
	frequency    prometheus.Gauge
	temperature  prometheus.Gauge
	automatic    prometheus.Gauge
	sensorErrors prometheus.Counter
	samples      prometheus.Counter
}

// NewExporter registers the fanctl metrics on a private registry. stats may
// be nil when no controller is attached yet.
func NewExporter(stats LineStats) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		frequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frequency_hertz",
			Help:      "Current actuation frequency.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last temperature read by the thermal worker.",
		}),
		automatic: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "automatic_mode",
			Help:      "1 while the thermal worker controls the frequency.",
		}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Worker iterations skipped because the sensor failed.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Worker iterations observed.",
		}),
	}

	e.registry.MustRegister(e.frequency, e.temperature, e.automatic, e.sensorErrors, e.samples)
	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if stats != nil {
		e.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "line_toggles_total",
				Help:      "Output line toggles performed by the actuation timer.",
			}, func() float64 { return float64(stats.Toggles()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "line_failures_total",
				Help:      "Output line writes that failed.",
			}, func() float64 { return float64(stats.LineFailures()) }),
		)
	}

	return e
}

// Registry is the gatherer served on /metrics.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe updates the gauges from one worker iteration.
func (e *Exporter) Observe(s fan.Sample) {
	e.samples.Inc()
	e.frequency.Set(float64(s.Frequency))
	if s.Err != nil {
		e.sensorErrors.Inc()
		return
	}
	e.temperature.Set(float64(s.Temperature))
}

func (e *Exporter) SetFrequency(f fan.Frequency) {
	e.frequency.Set(float64(f))
}

func (e *Exporter) SetMode(m fan.Mode) {
	if m == fan.ModeAutomatic {
		e.automatic.Set(1)
		return
	}
	e.automatic.Set(0)
}
