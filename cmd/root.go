package cmd

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/code-sleuth/ike-tube/pkg/config"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ike-tube",
	Short: "Ask questions about YouTube creators from their video transcripts",
	Long: `ike-tube indexes the captions of a channel's recent uploads into a vector store
and answers questions about the creator with structured insights.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger := util.NewLogger(zerolog.ErrorLevel)
		logger.Fatal().Err(err).Msg("Command failed")
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	logger := util.NewLogger(zerolog.ErrorLevel)
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || strings.EqualFold(util.GetStringFromEnv("STAGE", ""), "local") {
			logger.Fatal().Err(err).Msg("No .env file found")
		}
	}
	cfg = config.Load()
}
