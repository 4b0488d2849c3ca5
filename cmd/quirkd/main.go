// cmd/quirkd/main.go
//
// quirkd is the host-side daemon: it discovers the affected I2C
// controllers over sysfs, shadows their interrupt lines through the
// /proc/interrupts poller, and serves the per-controller counters over
// HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"irqhook-go/config"
	"irqhook-go/platform/hostinfo"
	"irqhook-go/platform/httpdiag"
	"irqhook-go/platform/procirq"
	"irqhook-go/platform/sysfspci"
	"irqhook-go/services/heartbeat"
	"irqhook-go/services/quirk"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (YAML)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Str("service", "quirkd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner := hostinfo.Collect(ctx, "")
	log.Info().
		Str("system", banner.Identity()).
		Str("board", banner.BoardName).
		Str("kernel", banner.KernelVersion).
		Msg("loaded")

	intc := procirq.New(cfg.ProcInterrupts, cfg.PollInterval, log)
	intc.Start(ctx)

	diag := httpdiag.New(cfg.Listen, log)
	diagErr := make(chan error, 1)
	go func() { diagErr <- diag.Run(ctx) }()

	svc := quirk.New(quirk.Options{
		Enumerator:  sysfspci.New(cfg.SysfsRoot),
		Interrupts:  intc,
		Diagnostics: diag,
		Endpoint:    cfg.Endpoint,
		Log:         log,
	})
	if err := svc.Start(ctx); err != nil {
		log.Error().Err(err).Msg("initialization failed")
		stop()
		<-diagErr
		os.Exit(1)
	}

	hb := &heartbeat.Service{
		Interval: cfg.HeartbeatInterval,
		Source:   svc,
		Log:      log,
	}
	_ = hb.Start(ctx)

	// Run until a signal lands or the listener dies underneath us.
	var listenErr error
	select {
	case <-ctx.Done():
		svc.Stop()
		listenErr = <-diagErr
	case listenErr = <-diagErr:
		svc.Stop()
	}
	if listenErr != nil {
		log.Error().Err(listenErr).Msg("diagnostic listener failed")
		os.Exit(1)
	}
	log.Info().Msg("stopped")
}
