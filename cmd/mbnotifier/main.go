package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mbnotifier/internal/app"
	"mbnotifier/internal/config"
	"mbnotifier/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	dryRun := flag.Bool("dry-run", false, "print the report instead of sending")
	verbose := flag.Bool("verbose", false, "debug logging")
	testTelegram := flag.Bool("test-telegram", false, "send a test Telegram message and exit")
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
	logger := logging.NewWithFile(level, cfg.LogDir(), time.Now().Format("2006-01-02")+".log")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger, app.Options{DryRun: *dryRun})
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}

	if *testTelegram {
		if err := application.SendTestMessage(ctx); err != nil {
			logger.Error("test message failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Test message sent successfully!")
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		application.NotifyError(ctx, err.Error())
		os.Exit(1)
	}
}
