// Package cli provides the sercha-rag command line interface.
package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// verbose enables debug logging for every command.
var verbose bool

// Services injected by the composition root. Commands report
// "not configured" when the service they need is nil.
var (
	answerService    driving.AnswerService
	retrievalService driving.RetrievalService
	ingestionService driving.IngestionService
	healthService    driving.HealthService
	settingsService  driving.SettingsService

	// supportedExtensions limits directory ingestion to readable formats.
	supportedExtensions []string

	// metricsHandler is mounted on /metrics by long-running commands.
	metricsHandler http.Handler
)

// Services aggregates everything the commands need.
type Services struct {
	Answer    driving.AnswerService
	Retrieval driving.RetrievalService
	Ingestion driving.IngestionService
	Health    driving.HealthService
	Settings  driving.SettingsService

	// Extensions lists the file extensions the normalisers accept.
	Extensions []string

	// Metrics serves Prometheus metrics; nil disables the endpoint.
	Metrics http.Handler
}

// SetServices wires the services into the commands.
func SetServices(s Services) {
	answerService = s.Answer
	retrievalService = s.Retrieval
	ingestionService = s.Ingestion
	healthService = s.Health
	settingsService = s.Settings
	supportedExtensions = s.Extensions
	metricsHandler = s.Metrics
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your documents",
	Long: `sercha-rag indexes local documents and answers questions about them
with a language model, citing the passages it used.

Ingest files, then ask:
  sercha-rag ingest ./docs
  sercha-rag ask "How do I rotate the signing keys?"`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
