package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/hardcorelimbo/internal/api"
	"github.com/mcoot/hardcorelimbo/internal/config"
	"github.com/mcoot/hardcorelimbo/internal/factory"
)

func main() {
	env, err := config.ParseEnv()
	if err != nil {
		slog.Error("failed to read environment", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, err := env.SlogLevel()
	if err != nil {
		slog.Warn("falling back to info logging", slog.String("error", err.Error()))
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, factory.Config{Service: cfg, Logger: logger})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	app.Start(ctx)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.API.Host
	serverConfig.Port = cfg.API.Port
	server := api.NewServer(app.Router, serverConfig, logger)

	logger.Info("server started",
		slog.String("mode", cfg.Mode),
		slog.String("storage", cfg.Storage.Type),
		slog.String("addr", server.Addr()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		exitCode = 1
	}

	if err := app.Close(); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	stop()
	os.Exit(exitCode)
}
