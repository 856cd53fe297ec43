// Command account-janitor deletes accounts that were never confirmed before
// their confirmation link expired.
//
// Settings come from an optional config file (-config) and ACCOUNTS_*
// environment variables; see internal/cmdconfig. With -once it runs a
// single purge and exits, which suits cron; otherwise it purges every
// ACCOUNTS_JANITOR_INTERVAL until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goAccount/internal/cmdconfig"
	"github.com/MrEthical07/goAccount/janitor"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional config file (yaml, json or toml)")
		once       = flag.Bool("once", false, "run a single purge and exit")
	)
	flag.Parse()

	cfg, err := cmdconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := cmdconfig.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := cmdconfig.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	j, err := janitor.New(s, janitor.Config{
		Interval: cfg.JanitorInterval,
		Timeout:  cfg.JanitorTimeout,
	}, logger, nil)
	if err != nil {
		logger.Fatal("init janitor", zap.Error(err))
	}

	if *once {
		if _, err := j.PurgeOnce(ctx); err != nil {
			closeStore()
			os.Exit(1)
		}
		return
	}

	logger.Info("janitor started", zap.Duration("interval", cfg.JanitorInterval))
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("janitor stopped", zap.Error(err))
	}
	logger.Info("janitor stopped")
}
