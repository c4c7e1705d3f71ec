package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/entity"
	"github.com/Emberfield/autodoc/internal/store"
)

var (
	flagType          string
	flagFile          string
	flagEndpoints     bool
	flagMinComplexity int
	flagName          string
	flagLimit         int
	flagEntitiesJSON  bool
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Query entities saved by 'analyze --save'",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkEntityType(flagType); err != nil {
			return err
		}

		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListEntities(store.Filter{
			Type:          flagType,
			FilePath:      flagFile,
			NameContains:  flagName,
			EndpointsOnly: flagEndpoints,
			MinComplexity: flagMinComplexity,
			Limit:         flagLimit,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagEntitiesJSON {
			return writeJSON(out, emptyRecords(records))
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No matching entities.")
			return nil
		}
		fmt.Fprintln(out, recordTable(records))
		return nil
	},
}

func init() {
	entitiesCmd.Flags().StringVar(&flagType, "type", "", "entity type: function, method or class")
	entitiesCmd.Flags().StringVar(&flagFile, "file", "", "file path as stored (relative to the analyzed root)")
	entitiesCmd.Flags().BoolVar(&flagEndpoints, "endpoints", false, "only API endpoints")
	entitiesCmd.Flags().IntVar(&flagMinComplexity, "min-complexity", 0, "minimum complexity score")
	entitiesCmd.Flags().StringVar(&flagName, "name", "", "name substring, case-insensitive")
	entitiesCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum number of entities (0 for all)")
	entitiesCmd.Flags().BoolVar(&flagEntitiesJSON, "json", false, "print entities as JSON")
	addQueryRootFlag(entitiesCmd)
	rootCmd.AddCommand(entitiesCmd)
}

func checkEntityType(t string) error {
	switch entity.EntityType(t) {
	case "", entity.Function, entity.Method, entity.Class:
		return nil
	}
	return fmt.Errorf("unknown --type %q (want function, method or class)", t)
}
