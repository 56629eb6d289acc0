// Command ps2000ctl controls an EA PS 2000 B power supply.
//
// With one of --on, --off, --toggle or --info it performs that action and
// exits. Without an action it opens an interactive shell.
//
//	ps2000ctl --port /dev/ttyACM0 --info
//	ps2000ctl --port /dev/ttyACM0 --on
//	ps2000ctl --simulate --metrics-addr :9100
//
// Settings are read from ps2000.yaml (or --config), PS2000_* environment
// variables and flags; see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-ps2000/internal/config"
	"github.com/arloliu/go-ps2000/link"
	"github.com/arloliu/go-ps2000/logger"
	"github.com/arloliu/go-ps2000/metrics"
	"github.com/arloliu/go-ps2000/psu"
	"github.com/arloliu/go-ps2000/scale"
	"github.com/arloliu/go-ps2000/sim"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("ps2000ctl", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	cfgPath := fs.StringP("config", "c", "", "configuration file (default ./ps2000.yaml)")
	on := fs.Bool("on", false, "switch the output on")
	off := fs.Bool("off", false, "switch the output off")
	toggle := fs.Bool("toggle", false, "toggle the output")
	info := fs.Bool("info", false, "print device information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}

		return 2
	}

	act, err := pickAction(*on, *off, *toggle, *info)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(*cfgPath, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, closeLog := newLogger(cfg.Logging)
	defer closeLog()
	logger.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, name, err := openLink(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open link", "error", err)
		return 1
	}

	s, err := psu.Open(ctx, l, byte(cfg.Node), //nolint:gosec // validated by config
		psu.WithTransport(cfg.TransportOptions()...),
		psu.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to open power supply", "port", name, "error", err)
		if c, ok := l.(io.Closer); ok {
			_ = c.Close()
		}

		return 1
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			log.Warn("failed to close session", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv, err := serveMetrics(cfg.Metrics, s, name, log)
		if err != nil {
			log.Error("failed to register metrics", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if act != actionNone {
		if err := runAction(ctx, s, act, os.Stdout); err != nil {
			log.Error("action failed", "action", act, "error", err)
			return 1
		}

		return 0
	}

	newShell(ctx, s).Run()

	return 0
}

func newLogger(cfg config.LoggingConfig) (logger.Logger, func()) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if cfg.File.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		w = lj
		closeFn = func() { _ = lj.Close() }
	}

	return logger.NewSlogWithWriter(w, cfg.Format, logger.ParseLevel(cfg.Level), false), closeFn
}

// openLink opens the serial port, or starts a simulated device when
// simulating. name identifies the link in logs and metrics.
func openLink(ctx context.Context, cfg *config.Config, log logger.Logger) (link.Link, string, error) {
	if !cfg.Simulate {
		sl, err := link.OpenSerial(cfg.Port, cfg.SerialConfig())
		if err != nil {
			return nil, "", err
		}

		return sl, cfg.Port, nil
	}

	profile, ok := scale.ProfileFor(cfg.Simulator.Model, byte(cfg.Node)) //nolint:gosec // validated by config
	if !ok {
		return nil, "", fmt.Errorf("unknown simulator model %q", cfg.Simulator.Model)
	}

	dev := sim.New(profile,
		sim.WithLoad(cfg.Simulator.Load),
		sim.WithLogger(log.With("component", "sim")),
	)
	log.Info("using simulated device", "model", profile.Model, "load", cfg.Simulator.Load)

	return sim.Connect(ctx, dev), "sim", nil
}

func serveMetrics(cfg config.MetricsConfig, s *psu.Session, name string, log logger.Logger) (*http.Server, error) {
	reg := metrics.NewRegistry()
	labels := map[string]string{"port": name}
	if err := metrics.RegisterTransport(reg, s.Metrics(), labels); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	return srv, nil
}
