package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/analyze"
	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/store"
)

var (
	flagJSON     bool
	flagSave     bool
	flagWorkers  int
	flagFailFast bool
	flagQuiet    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Extract entities from a Python file or directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "print entities as JSON")
	analyzeCmd.Flags().BoolVar(&flagSave, "save", false, "persist entities to the database")
	analyzeCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (default analysis.workers)")
	analyzeCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, "stop at the first file that fails to parse")
	analyzeCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzerConfig merges config values with command flags.
func analyzerConfig(cmd *cobra.Command) analyze.Config {
	ac := analyze.Config{
		Workers:        cfg.Analysis.Workers,
		FailFast:       cfg.Analysis.FailFast,
		MaxFileSize:    cfg.Analysis.MaxFileSize,
		IgnorePatterns: cfg.Analysis.IgnorePatterns,
		Logger:         logger,
	}
	if cmd.Flags().Changed("workers") {
		ac.Workers = flagWorkers
	}
	if cmd.Flags().Changed("fail-fast") {
		ac.FailFast = flagFailFast
	}
	return ac
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	ac := analyzerConfig(cmd)
	if flagSave {
		root := target
		if !info.IsDir() {
			root = filepath.Dir(target)
		}
		path := dbPath(root)
		st, err := store.Open(path, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
		ac.Store = st
		logger.WithField("db", path).Info("saving entities")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !info.IsDir() {
		// Records keep the path as the user typed it.
		records, err := analyze.New(ac).AnalyzeFile(ctx, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(out, records)
		}
		fmt.Fprintln(out, recordTable(records))
		return nil
	}

	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	if !flagQuiet && !flagJSON {
		ac.OnProgress = func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				bar = newProgressBar(total)
			}
			bar.Add(1)
		}
	}

	start := time.Now()
	res, err := analyze.New(ac).AnalyzeDirectory(ctx, target)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(out, res.Entities)
	}
	printDirectoryResult(cmd, res, time.Since(start))
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Analyzing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func printDirectoryResult(cmd *cobra.Command, res *analyze.Result, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	if len(res.Entities) > 0 {
		fmt.Fprintln(out, recordTable(res.Entities))
	}

	st := res.Stats
	fmt.Fprintf(out, "\nDone in %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  Files:     %d total, %d parsed, %d cached, %d failed\n",
		st.FilesTotal, st.FilesParsed, st.FilesCached, st.FilesFailed)
	fmt.Fprintf(out, "  Entities:  %d classes, %d functions, %d methods\n", st.Classes, st.Functions, st.Methods)
	fmt.Fprintf(out, "  Endpoints: %d\n", st.Endpoints)
	if st.FilesRemoved > 0 {
		fmt.Fprintf(out, "  Removed:   %d stale files from the database\n", st.FilesRemoved)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  failed: %s\n", f.Error())
	}
}

// emptyRecords keeps JSON output an array even when nothing matched.
func emptyRecords(records []boundary.Record) []boundary.Record {
	if records == nil {
		return []boundary.Record{}
	}
	return records
}
