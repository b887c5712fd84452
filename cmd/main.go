package main

import (
	"context"
	"os"

	"github.com/desertthunder/ytq/internal/services"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if p := os.Getenv("YTQ_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	apiService := services.NewAPIService(config.Resolver.BaseURL, config.Resolver.APIKey, nil)
	proxy := services.NewProxyService(apiService)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Provider:   proxy,
		Playlists:  proxy,
		API:        apiService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "ytq",
		Usage:    "Shared music queues with fair ordering and chunked streaming",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
