package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docstruct/internal/api"
)

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	cfg := deps.Cfg
	if c.Port != "" {
		cfg.Port = c.Port
	}

	srv := api.NewServer(deps.Index, deps.Log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		deps.Log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	deps.Log.Info("starting docstruct",
		"port", cfg.Port,
		"docs_root", cfg.DocsRoot,
		"auth", cfg.APIKey != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
