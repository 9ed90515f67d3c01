package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvmediagithub/scriptrating-rag/internal/config"
	"github.com/nvmediagithub/scriptrating-rag/internal/logging"
	"github.com/nvmediagithub/scriptrating-rag/internal/rag"
	"github.com/nvmediagithub/scriptrating-rag/internal/telemetry"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragd",
		Short:         "Retrieval engine for script content-rating evidence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ragd %s (commit %s, built %s)\n", version, gitCommit, buildDate)
			return nil
		},
	}
}

func buildLogger() (*zap.Logger, *logging.Logger, error) {
	lcfg := logging.NewDefaultConfig()
	l, err := logging.NewLogger(lcfg, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return l.Underlying(), l, nil
}

// buildTelemetry initializes OpenTelemetry tracing/metrics from the
// observability section of cfg. Disabled by default; a construction failure
// degrades gracefully rather than aborting the command (telemetry.New's own
// contract), so the returned error is only non-nil on invalid configuration.
func buildTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	tcfg := telemetry.NewDefaultConfig()
	tcfg.Enabled = cfg.Observability.EnableTelemetry
	tcfg.ServiceName = cfg.Observability.ServiceName
	tcfg.ServiceVersion = version
	if cfg.Observability.OTLPEndpoint != "" {
		tcfg.Endpoint = cfg.Observability.OTLPEndpoint
	}
	tcfg.Protocol = cfg.Observability.OTLPProtocol
	tcfg.Insecure = cfg.Observability.OTLPInsecure
	tcfg.TLSSkipVerify = cfg.Observability.OTLPTLSSkipVerify

	t, err := telemetry.New(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return t, nil
}

func buildOrchestrator(ctx context.Context) (*rag.Orchestrator, *zap.Logger, func(context.Context), error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	zapLogger, _, err := buildLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	t, err := buildTelemetry(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	shutdown := func(shutdownCtx context.Context) {
		if err := t.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("telemetry shutdown", zap.Error(err))
		}
	}

	o, err := rag.New(cfg, zapLogger)
	if err != nil {
		shutdown(ctx)
		return nil, nil, nil, fmt.Errorf("constructing orchestrator: %w", err)
	}
	return o, zapLogger, shutdown, nil
}
