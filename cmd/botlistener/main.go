package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mbnotifier/internal/app"
	"mbnotifier/internal/config"
	"mbnotifier/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	logger := logging.NewWithFile(level, cfg.LogDir(), "bot-listener.log")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := app.NewListener(cfg, logger)
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}

	if err := listener.Run(ctx); err != nil {
		logger.Error("listener stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("bot listener stopped")
}
