package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/telemetry"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	configFile, generateConfig, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if generateConfig {
		if err := config.GenerateExampleConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := slogging.Get()
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing logger: %v\n", err)
		}
	}()

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func initLogging(cfg *config.Config) error {
	lc := cfg.Logging
	if !lc.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}
	return slogging.Initialize(slogging.Config{
		Level:                       cfg.GetLogLevel(),
		IsDev:                       lc.IsDev,
		LogDir:                      lc.LogDir,
		MaxAgeDays:                  lc.MaxAgeDays,
		MaxSizeMB:                   lc.MaxSizeMB,
		MaxBackups:                  lc.MaxBackups,
		AlsoLogToConsole:            lc.AlsoLogToConsole,
		SuppressUnauthenticatedLogs: lc.SuppressUnauthenticatedLogs,
	})
}

func run(cfg *config.Config) error {
	logger := slogging.Get()
	logger.Info("Starting drawisly server %s", version)

	tel, err := telemetry.NewService(telemetry.FromAppConfig(cfg, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.ping(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      c.server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return c.hub.RunReaper(gctx, cfg.WebSocket.ReapInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		// hijacked websocket connections are not tracked by http.Server
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("room connections: %w", err))
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
		if err := tel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
