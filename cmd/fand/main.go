package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/fanctl/internal/config"
	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/gpio"
	"codeberg.org/mutker/fanctl/internal/logger"
	"codeberg.org/mutker/fanctl/internal/metrics"
	"codeberg.org/mutker/fanctl/internal/mqtt"
	"codeberg.org/mutker/fanctl/internal/pid"
	"codeberg.org/mutker/fanctl/internal/sensor"
	"codeberg.org/mutker/fanctl/internal/web"
	"github.com/spf13/pflag"
)

const failureCheckInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg); err != nil {
		if appErr, ok := err.(errors.Error); ok {
			logger.ErrorWithCode(appErr).Msg("fand failed")
		} else {
			logger.Error().Err(err).Msg("fand failed")
		}
		os.Exit(1)
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := pid.Write(cfg.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	src, err := sensor.Open(cfg.SensorConfig())
	if err != nil {
		return err
	}
	defer src.Close()

	line, err := gpio.Open(cfg.GPIOConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := line.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release output line")
		}
	}()

	collector, err := metrics.NewService(cfg.MetricsConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close metrics")
		}
	}()
	recorder := metrics.NewRecorder(collector, 0)

	fanCfg, err := cfg.FanConfig()
	if err != nil {
		return err
	}

	// assigned before Start, the worker is the only caller
	var exporter *metrics.Exporter
	fanCfg.OnSample = func(s fan.Sample) {
		exporter.Observe(s)
		recorder.Observe(s)
	}

	ctrl, err := fan.New(src, line, fanCfg)
	if err != nil {
		return err
	}
	exporter = metrics.NewExporter(ctrl)
	exporter.SetFrequency(ctrl.Frequency())
	exporter.SetMode(ctrl.Mode())

	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}

	svcCtx, svcCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	spawn(func() { recorder.Run(svcCtx) })
	for _, a := range fan.Attributes() {
		spawn(func() { logChanges(svcCtx, ctrl, exporter, a) })
	}
	spawn(func() { reportLineFailures(svcCtx, ctrl) })

	if cfg.Listen != "" {
		srv := web.New(cfg.Listen, ctrl, exporter.Registry())
		spawn(func() {
			if err := srv.Run(svcCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server failed")
			}
		})
	}

	if cfg.MQTTBroker != "" {
		bridge := mqtt.NewBridge(cfg.MQTTConfig(), ctrl)
		spawn(func() {
			if err := bridge.Run(svcCtx); err != nil {
				logger.Error().Err(err).Msg("MQTT bridge failed")
			}
		})
	}

	logger.Info().
		Str("sensor", cfg.Sensor).
		Str("output", cfg.Output).
		Str("listen", cfg.Listen).
		Bool("mqtt", cfg.MQTTBroker != "").
		Bool("metrics", cfg.Metrics).
		Msg("fand running")

	<-ctx.Done()

	// hand the output back to the thermal policy before exiting
	if err := ctrl.SetMode(fan.ModeAutomatic); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore automatic mode")
	}

	svcCancel()
	wg.Wait()

	if err := ctrl.Stop(); err != nil {
		return err
	}

	if dropped := recorder.Dropped(); dropped > 0 {
		logger.Warn().Uint64("dropped", dropped).Msg("Samples dropped by the metrics queue")
	}
	logger.Info().Msg("Exiting...")

	return nil
}

// logChanges logs every change of a and keeps the exported gauges current.
func logChanges(ctx context.Context, ctrl *fan.Controller, exporter *metrics.Exporter, a fan.Attribute) {
	since := ctrl.AttributeVersion(a)

	for {
		value, version, err := ctrl.WaitAttribute(ctx, a, since)
		if err != nil {
			return
		}
		since = version

		switch a {
		case fan.AttributeFrequency:
			exporter.SetFrequency(ctrl.Frequency())
		case fan.AttributeMode:
			exporter.SetMode(ctrl.Mode())
		}

		logger.Info().Str("attribute", string(a)).Str("value", value).Msg("Changed")
	}
}

// reportLineFailures surfaces output write errors, which the actuation timer
// only counts.
func reportLineFailures(ctx context.Context, ctrl *fan.Controller) {
	ticker := time.NewTicker(failureCheckInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ctrl.LineFailures(); n > last {
				logger.Warn().Uint64("failures", n-last).Uint64("total", n).Msg("Output line writes failed")
				last = n
			}
		}
	}
}
