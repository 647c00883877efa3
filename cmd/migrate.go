package cmd

import (
	"github.com/code-sleuth/ike-tube/internal/manager/embedders"
	"github.com/code-sleuth/ike-tube/pkg/util"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Create the vector table and index in your Turso database, sized for the
dimension of EMBEDDING_MODEL.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := util.NewLoggerFromEnv()

		dimension, err := embedders.ModelDimension(cfg.EmbeddingModel)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close database connection")
			}
		}()

		if err := database.Migrate(cmd.Context(), dimension); err != nil {
			return err
		}

		logger.Info().Int("dimension", dimension).Msg("Database migration completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
