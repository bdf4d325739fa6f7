package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harmony-api/internal/bootstrap"
	"harmony-api/internal/config"
	"harmony-api/internal/pkg/logger"
	"harmony-api/internal/server"
	"harmony-api/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer("harmony-api", cfg.App.Version, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, sysLogger)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.SnapshotService.Start(ctx); err != nil {
		sysLogger.Error("MAIN", "Failed to start snapshot scheduler", map[string]interface{}{"error": err.Error()})
	}
	go container.CatalogueStore.Warm(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			sysLogger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
		}
	case <-ctx.Done():
		sysLogger.Info("MAIN", "Shutting down", nil)
	}

	// 6. Drain requests, then take the final snapshot.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sysLogger.Warn("MAIN", "Server shutdown incomplete", map[string]interface{}{"error": err.Error()})
	}
	container.SnapshotService.Stop(shutdownCtx)
}
