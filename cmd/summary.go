package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/analyze"
	"github.com/Emberfield/autodoc/internal/report"
	"github.com/Emberfield/autodoc/internal/store"
)

var (
	flagRaw    bool
	flagOutput string
	flagTop    int
	flagFormat string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Report on the saved entities as markdown or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFormat != "markdown" && flagFormat != "json" {
			return fmt.Errorf("unknown --format %q (want markdown or json)", flagFormat)
		}
		st, err := openExistingStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListEntities(store.Filter{})
		if err != nil {
			return err
		}

		top := cfg.Report.Top
		if cmd.Flags().Changed("top") {
			top = flagTop
		}
		sum := report.Summarize(records, top)
		if root, err := st.GetMeta(analyze.MetaRoot); err == nil && root != "" {
			sum.Title = filepath.Base(root)
		}

		if flagFormat == "json" {
			if flagOutput == "" {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			f, err := os.Create(flagOutput)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			defer f.Close()
			if err := writeJSON(f, sum); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			logger.WithField("path", flagOutput).Info("report written")
			return nil
		}

		md := report.Markdown(sum)
		if flagOutput != "" {
			if err := os.WriteFile(flagOutput, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			logger.WithField("path", flagOutput).Info("report written")
			return nil
		}
		if flagRaw {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}

		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return err
		}
		rendered, err := r.Render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&flagRaw, "raw", false, "print plain markdown")
	summaryCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the markdown report to a file")
	summaryCmd.Flags().StringVar(&flagFormat, "format", "markdown", "report format: markdown or json")
	summaryCmd.Flags().IntVar(&flagTop, "top", 0, "most complex entities to list (default report.top)")
	addQueryRootFlag(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}
