package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "Inspect indexed channel namespaces",
}

var namespacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed namespaces with their record counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := newVectorRepository(cfg, database, 0).ListNamespaces(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAMESPACE\tRECORDS")
		for _, stat := range stats {
			fmt.Fprintf(w, "%s\t%d\n", stat.Namespace, stat.Records)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
	namespacesCmd.AddCommand(namespacesListCmd)
}
