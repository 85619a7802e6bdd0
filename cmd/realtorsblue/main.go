// Package main is the entry point for the real estate listings server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/config"
	"github.com/manny2375/2020realtorsblue-sub000/internal/app"
	"github.com/manny2375/2020realtorsblue-sub000/internal/logging"
	"github.com/manny2375/2020realtorsblue-sub000/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, logging.Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	slog.Info("starting realtorsblue",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		timeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
