package main

import (
	"os"

	"github.com/oarkflow/log"

	"github.com/oarkflow/calc"
	"github.com/oarkflow/calc/pkg/config"
	"github.com/oarkflow/calc/pkg/server"
)

// Standalone API binary for container deployments. CALC_CONFIG points at a
// config file and PORT overrides the listen port.
func main() {
	logger := &log.DefaultLogger

	cfg := config.Default()
	if path := os.Getenv("CALC_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("Failed to load config")
		}
		cfg = loaded
	}
	calc.SetRuntimeConfig(cfg.ApplyRuntime())

	cache, err := calc.NewTokenCache(cfg.Cache.TokenCacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token cache")
	}
	defer cache.Close()

	addr := cfg.Server.Address
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	srv := server.NewServer(cfg, server.Config{Version: "1.0.0", AccessLog: true},
		server.WithLogger(logger), server.WithTokenCache(cache))
	if err := srv.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("Server error")
	}
}
