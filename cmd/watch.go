package cmd

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/analyze"
	"github.com/Emberfield/autodoc/internal/extract"
	"github.com/Emberfield/autodoc/internal/store"
	"github.com/Emberfield/autodoc/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep the database current while files change",
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

		st, err := store.Open(dbPath(root), logger)
		if err != nil {
			return err
		}
		defer st.Close()

		ac := analyzerConfig(cmd)
		ac.Store = st
		// A broken file mid-edit must not stop the watcher.
		ac.FailFast = false
		a := analyze.New(ac)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		run := func() {
			res, err := a.AnalyzeDirectory(ctx, root)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.WithError(err).Error("analysis failed")
				}
				return
			}
			for _, f := range res.Failures {
				logger.WithField("file", f.Path).Warn(f.Message)
			}
		}
		run()

		w, err := watch.New(root, watch.Options{
			Extensions:     extract.Extensions(),
			IgnorePatterns: ac.IgnorePatterns,
			Debounce:       flagDebounce,
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		logger.WithField("root", root).Info("watching for changes")

		err = w.Run(ctx, func(paths []string) {
			logger.WithFields(logrus.Fields{"changed": len(paths)}).Info("re-analyzing")
			run()
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-analyzing")
	rootCmd.AddCommand(watchCmd)
}
