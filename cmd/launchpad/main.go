// ====================================
// File: cmd/launchpad/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/asterlaunch/launchpad/internal/config"
	"github.com/asterlaunch/launchpad/internal/launchpad"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback, _ := zap.NewDevelopment()
		fallback.Fatal("Failed to load config", zap.Error(err))
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.DebugLogging {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	logger.Info("Starting launchpad")

	runner, err := launchpad.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize launchpad", zap.Error(err))
		os.Exit(1)
	}
	defer runner.Shutdown()

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("Launchpad execution error", zap.Error(err))
		os.Exit(1)
	}
}
