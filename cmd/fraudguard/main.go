package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/fraudguard/internal/cli"
	"github.com/congo-pay/fraudguard/internal/config"
	"github.com/congo-pay/fraudguard/internal/logging"
	"github.com/congo-pay/fraudguard/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithFormat(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.AppName, cfg.OTelEndpoint)
	if err != nil {
		logger.Error("setup tracing", "error", err)
		os.Exit(1)
	}

	boot := func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logger)
	}
	runErr := cli.Execute(ctx, boot, os.Args[1:], os.Stdout, os.Stderr)

	if err := shutdownTracing(context.Background()); err != nil {
		logger.Warn("shutdown tracing", "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
