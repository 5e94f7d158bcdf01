package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/preview"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Section string `short:"s" help:"Restrict the build to one content section"`
		Output  string `short:"o" help:"Output directory for the generated site"`
	} `cmd:"" help:"Build the site from articles and reference metadata"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Preview struct {
		Addr string `help:"Listen address, overrides preview.addr"`
	} `cmd:"" help:"Build and serve the site locally, rebuilding on change"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	errs := sgerrors.NewCLIErrorAdapter(CLI.Verbose, logger)

	switch ctx.Command() {
	case "build":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			errs.HandleError(err)
		}
		errs.HandleError(runBuild(cfg))

	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
		slog.Info("Configuration file created", logfields.Path(CLI.Config))

	case "preview":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			errs.HandleError(err)
		}
		if CLI.Preview.Addr != "" {
			cfg.Preview.Addr = CLI.Preview.Addr
		}
		errs.HandleError(runPreview(cfg))
	}
}

func runBuild(cfg *config.Config) error {
	builder, err := build.NewBuilder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	_, err = builder.Run(signalContext(), build.Options{
		Section: CLI.Build.Section,
		Output:  CLI.Build.Output,
	})
	return err
}

func runPreview(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	builder, err := build.NewBuilder(cfg, build.WithRecorder(recorder))
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	return preview.NewServer(cfg, builder, registry).Run(signalContext())
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
