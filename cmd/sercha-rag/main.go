// Command sercha-rag answers questions about local documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// reconcileTimeout bounds the startup retry of failed vector deletes.
const reconcileTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A .env in the working directory is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Ignoring .env: %v", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)
	settingsService.SetAIValidator(ai.NewConfigValidator())

	cli.SetVersion(version)

	app, err := build(ctx, settingsService)
	if err != nil {
		// Settings and version still work so the configuration can be fixed.
		logger.Warn("%v", err)
		logger.Warn("Run 'sercha-rag settings wizard' or 'sercha-rag settings show' to fix the configuration.")
		cli.SetServices(cli.Services{Settings: settingsService})
		return cli.Execute(ctx)
	}
	defer app.Close()

	reconcileCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	if _, err := app.ingestion.Reconcile(reconcileCtx); err != nil {
		logger.Warn("Stale vectors remain: %v", err)
	}
	cancel()

	if app.settings.Metrics.Addr != "" {
		go func() {
			if err := app.metrics.Serve(ctx, app.settings.Metrics.Addr); err != nil {
				logger.Warn("%v", err)
			}
		}()
	}

	cli.SetServices(cli.Services{
		Answer:     app.answer,
		Retrieval:  app.retriever,
		Ingestion:  app.ingestion,
		Health:     app.health,
		Settings:   settingsService,
		Extensions: app.normalisers.SupportedExtensions(),
		Metrics:    app.metrics.Handler(),
	})
	return cli.Execute(ctx)
}
