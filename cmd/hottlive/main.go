package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/hott-telemetry/cmd/hottlive/app"
	"github.com/roman-kulish/hott-telemetry/internal/logging"
)

func main() {
	var logLevel slog.LevelVar
	logger := logging.New(os.Stderr, &logLevel)

	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	fileLogger, logFile, err := logging.Apply(config.Settings, &logLevel)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer logFile.Close()
	logger = fileLogger

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		logFile.Close()
		os.Exit(1)
	}
}
