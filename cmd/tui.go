package cmd

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/store"
	"github.com/Emberfield/autodoc/internal/tui"
)

var flagTUISave bool

var tuiCmd = &cobra.Command{
	Use:   "tui [path]",
	Short: "Analyze a directory interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		// Log lines would corrupt the alternate screen.
		logger.SetOutput(io.Discard)

		ac := analyzerConfig(cmd)
		if flagTUISave {
			st, err := store.Open(dbPath(root), logger)
			if err != nil {
				return err
			}
			defer st.Close()
			ac.Store = st
		}

		_, err = tui.Run(tui.Config{
			Root:     root,
			Analysis: ac,
			Top:      cfg.Report.Top,
		})
		return err
	},
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUISave, "save", false, "persist entities to the database")
	rootCmd.AddCommand(tuiCmd)
}
