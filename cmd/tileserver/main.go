// Command tileserver serves tile generation over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tiledwfc/internal/config"
	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/server"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
	"github.com/lawnchairsociety/tiledwfc/internal/tileset"
)

func main() {
	configFile := flag.String("config", "data/tilegen.yaml", "Path to config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	addr := flag.String("addr", "", "Listen address (default from config)")
	useDB := flag.Bool("db", false, "Save runs to the configured database")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	closeLog, err := logger.Initialize(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(*configFile, *addr, *useDB); err != nil {
		logger.Error("Server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(configFile, addr string, useDB bool) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Address = addr
	}
	if useDB {
		cfg.Database.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lib, err := tileset.LoadDir(cfg.Tilesets.Dir)
	if err != nil {
		return err
	}
	logger.Info("Tilesets loaded", "dir", cfg.Tilesets.Dir, "names", lib.Names())

	srv := server.New(cfg, lib)

	if cfg.Database.Enabled {
		st, err := store.Open(cfg.Database.Config)
		if err != nil {
			return err
		}
		defer st.Close()
		srv.SetStore(st)
		logger.Info("Run persistence enabled", "driver", st.Dialect().DriverName())
	}

	if len(cfg.Server.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(cfg.Server.AllowedOrigins) == 1 && cfg.Server.AllowedOrigins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", cfg.Server.AllowedOrigins)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
