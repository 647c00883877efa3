package cmd

import (
	"context"
	"time"

	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/spf13/cobra"
)

var (
	ingestVideos  int
	ingestKey     string
	ingestTimeout time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <channel>",
	Short: "Index the transcripts of a channel's recent uploads",
	Long: `Fetch the captions of a channel's most recent uploads, chunk and embed them,
and store the vectors in the channel's namespace. Channels that are already
indexed are left untouched.

Examples:
  ike-tube ingest https://www.youtube.com/@veritasium
  ike-tube ingest @veritasium --videos 25`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVar(&ingestVideos, "videos", 0, "Number of recent uploads to index (defaults to MAX_VIDEOS)")
	ingestCmd.Flags().StringVar(&ingestKey, "key", "", "Idempotency key (defaults to the namespace)")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "Timeout for the entire ingestion")
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := util.NewLoggerFromEnv()
	if err := cfg.ValidateIngestion(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ingestTimeout)
	defer cancel()

	p, err := buildPipeline(ctx, cfg, pipelineOptions{ingestion: true, maxVideos: ingestVideos})
	if err != nil {
		return err
	}
	defer p.closer.Close()

	result, err := p.ingestion.IngestOnce(ctx, ingestKey, args[0])
	if err != nil {
		return err
	}

	if result.NamespaceAlreadyExisted {
		logger.Info().Str("namespace", result.Namespace.String()).Msg("Namespace already indexed, nothing to do")
	}
	return printJSON(cmd.OutOrStdout(), result)
}
