package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/api"
	"github.com/code-sleuth/ike-tube/internal/manager/ratelimit"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingest and ask HTTP API",
	Long: `Serve POST /api/ingest, POST /api/ask, GET /health and GET /metrics.

Examples:
  ike-tube serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := util.NewLoggerFromEnv()
	if err := cfg.ValidateIngestion(); err != nil {
		return err
	}
	if err := cfg.ValidateQuery(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, pipelineOptions{ingestion: true, query: true, counters: true})
	if err != nil {
		return err
	}
	defer p.closer.Close()

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	server, err := api.NewServer(api.Config{
		Addr:           addr,
		IngestLimit:    cfg.IngestRateLimit,
		AskLimit:       cfg.AskRateLimit,
		WindowSeconds:  cfg.RateLimitWindowSeconds(),
		Stage:          cfg.Stage,
		TrustedProxies: cfg.TrustedProxies,
	}, p.ingestion, p.query, ratelimit.NewLimiter(p.counters))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shut down cleanly")
		return err
	}
	return nil
}
