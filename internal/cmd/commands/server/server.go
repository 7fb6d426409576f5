// Package server implements the command that runs the HTTP API server.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	api "github.com/storeforge/catsync/internal/api/v1"
	"github.com/storeforge/catsync/internal/cmd/base"
	"github.com/storeforge/catsync/internal/config"
	"github.com/storeforge/catsync/internal/db"
	"github.com/storeforge/catsync/internal/server"
)

type Command struct {
	*base.Command

	flagConfig string
	flagAddr   string
}

func (c *Command) Synopsis() string {
	return "Run the API server"
}

func (c *Command) Help() string {
	return `Usage: catsync server [options]

  Run the category sync API server. Without -config the server uses a
  local SQLite database in the working directory.` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("server", flag.ExitOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to HCL configuration file",
	)
	f.StringVar(
		&c.flagAddr, "addr", "",
		"Listen address, overrides the configured listen_addr",
	)

	return f
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if c.flagAddr != "" {
		cfg.ListenAddr = c.flagAddr
	}

	log := c.Log.Named("server")
	log.SetLevel(hclog.LevelFromString(cfg.LogLevel))

	database, err := db.NewDB(cfg.Database, log)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to database: %v", err))
		return 1
	}

	srv := server.Server{
		Config:         cfg,
		DB:             database,
		Logger:         log,
		NewStoreClient: server.DefaultClientFactory(cfg.BigCommerce, log),
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, srv)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.UI.Error(fmt.Sprintf("server error: %v", err))
			return 1
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			c.UI.Error(fmt.Sprintf("error during shutdown: %v", err))
			return 1
		}
	}

	return 0
}

func (c *Command) loadConfig() (*config.Config, error) {
	if c.flagConfig == "" {
		c.UI.Info("no config file specified, using local SQLite defaults")
		return config.Default(), nil
	}
	cfg, err := config.NewConfig(c.flagConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}
