package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/models"

	"github.com/spf13/cobra"
)

var (
	askModel       string
	askHistoryFile string
	askTimeout     time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask <channel> <question>",
	Short: "Ask a question about an indexed channel",
	Long: `Retrieve the passages of a channel closest to the question and print the
structured insight as JSON.

Examples:
  ike-tube ask @veritasium "What topics does he cover most?"
  ike-tube ask @veritasium "Why?" --history turns.json --model claude-sonnet-4-20250514`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askModel, "model", "", "Generation model (defaults to GENERATION_MODEL)")
	askCmd.Flags().StringVar(&askHistoryFile, "history", "", "JSON file holding prior turns as [{role, content}]")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "Timeout for the question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateQuery(); err != nil {
		return err
	}

	history, err := readHistory(askHistoryFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	p, err := buildPipeline(ctx, cfg, pipelineOptions{query: true, model: askModel})
	if err != nil {
		return err
	}
	defer p.closer.Close()

	insight, err := p.query.Answer(ctx, args[0], args[1], history)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), insight)
}

func readHistory(path string) ([]models.Message, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	var history []models.Message
	if err := json.Unmarshal(content, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return history, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
