package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/config"
	"github.com/Emberfield/autodoc/internal/store"
)

var (
	flagConfig    string
	flagDB        string
	flagLogLevel  string
	flagLogFormat string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autodoc",
	Short: "Extract functions, methods and classes from Python code",
	Long: `autodoc parses Python source with tree-sitter and extracts every
function, method and class with its decorators, parameters, return type,
docstring, a complexity score and HTTP endpoint hints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.NewLoader(wd, flagConfig).Load()
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.Log.Format = flagLogFormat
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		logger, err = newLogger(cfg.Log)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./.autodoc.yml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default <project>/.autodoc/entities.db)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (text or json)")
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for JSON output and the MCP transport.
func newLogger(lc config.LogConfig) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(level)

	if strings.EqualFold(lc.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// dbPath resolves the database location: --db, then storage.path, then
// <root>/.autodoc/entities.db.
func dbPath(root string) string {
	if flagDB != "" {
		return flagDB
	}
	if cfg != nil && cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return filepath.Join(root, ".autodoc", "entities.db")
}

// flagQueryRoot is the analyzed project whose database the query commands
// read. It defaults to the working directory.
var flagQueryRoot string

func addQueryRootFlag(c *cobra.Command) {
	c.Flags().StringVar(&flagQueryRoot, "root", "", "project root passed to 'analyze --save' (default current directory)")
}

// openExistingStore opens the database for query commands, which must not
// create an empty one.
func openExistingStore() (*store.SQLiteStore, error) {
	root := flagQueryRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	path := dbPath(root)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s\nRun 'autodoc analyze --save %s' first, or point at the analyzed project with --root or --db", path, root)
	}
	st, err := store.Open(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
