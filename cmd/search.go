package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/store"
)

var (
	flagSearchLimit int
	flagSearchType  string
	flagSearchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find saved entities by name or docstring text",
	Long: `Search matches the query case-insensitively against entity names and
docstrings. Name matches are listed before docstring-only matches.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkEntityType(flagSearchType); err != nil {
			return err
		}
		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := st.Search(args[0], store.Filter{Type: flagSearchType, Limit: flagSearchLimit})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagSearchJSON {
			return writeJSON(out, results)
		}
		if len(results) == 0 {
			fmt.Fprintf(out, "No entities match %q.\n", args[0])
			return nil
		}
		records := make([]boundary.Record, 0, len(results))
		for _, r := range results {
			records = append(records, r.Record)
		}
		fmt.Fprintln(out, recordTable(records))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 10, "maximum number of results (0 for all)")
	searchCmd.Flags().StringVar(&flagSearchType, "type", "", "entity type: function, method or class")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "print results as JSON")
	addQueryRootFlag(searchCmd)
	rootCmd.AddCommand(searchCmd)
}
