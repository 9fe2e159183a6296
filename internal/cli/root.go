// Package cli provides the ui2sql command-line interface.
package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"ui2sql-backend/internal/config"
	"ui2sql-backend/internal/logging"
)

// Version information (set at build time).
var Version = "0.1.0"

// globalFlags override values loaded from the environment when set.
type globalFlags struct {
	logLevel        string
	maxUploadMB     float64
	analysisDelay   time.Duration
	generationDelay time.Duration
	executionDelay  time.Duration
	failStage       string
}

type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "ui2sql",
		Short: "Turn a UI screenshot into a database schema",
		Long: `ui2sql analyzes a UI screenshot, generates SQL DDL for the data it shows
and executes it. "serve" exposes the same workflow over HTTP.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.Float64Var(&flags.maxUploadMB, "max-upload-mb", 0, "Maximum image size in MiB")
	pf.DurationVar(&flags.analysisDelay, "analysis-delay", 0, "Simulated analysis latency")
	pf.DurationVar(&flags.generationDelay, "generation-delay", 0, "Simulated SQL generation latency")
	pf.DurationVar(&flags.executionDelay, "execution-delay", 0, "Simulated execution latency")
	pf.StringVar(&flags.failStage, "fail-stage", "", "Make one stage fail (analyze, generate, execute)")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *globalFlags) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("max-upload-mb") {
		cfg.MaxUploadBytes = int64(flags.maxUploadMB * 1024 * 1024)
	}
	if changed("analysis-delay") {
		cfg.AnalysisDelay = flags.analysisDelay
	}
	if changed("generation-delay") {
		cfg.GenerationDelay = flags.generationDelay
	}
	if changed("execution-delay") {
		cfg.ExecutionDelay = flags.executionDelay
	}
	if changed("fail-stage") {
		cfg.MockFailStage = flags.failStage
	}
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.IsProduction())
}
