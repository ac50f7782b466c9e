package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"threadweave/internal/config"
	"threadweave/internal/db"
	"threadweave/internal/logger"
)

// defaultDBName is looked for in the working directory and its parents when
// no store path is configured.
const defaultDBName = "threadweave.db"

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string
	logSink    string

	// cfg is loaded by the root command before any subcommand runs.
	cfg = config.Defaults()
)

var rootCmd = &cobra.Command{
	Use:           "threadweave",
	Short:         "Reconstruct Reddit comment threads from flat JSONL dumps",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded
		return logger.Init(logger.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Sink:   cfg.Logging.Sink,
		})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", "", "Path to the thread store (sqlite)")
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&logSink, "log-sink", "", "Log sink: stderr, stdout or file:<path>")
}

// loadConfig reads .env, the config file and the environment, then applies
// the persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		c.Store.Path = dbPath
	}
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Logging.Format = logFormat
	}
	if flags.Changed("log-sink") {
		c.Logging.Sink = logSink
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DiscoverDB finds the store path: --db, THREADWEAVE_DB or store.path first,
// then threadweave.db in the working directory or any parent.
func DiscoverDB() (string, error) {
	if p := cfg.Store.Path; p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("database not found at %s", p)
		}
		return p, nil
	}

	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, defaultDBName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", fmt.Errorf("no %s found (use --db, set THREADWEAVE_DB or run from a directory containing %s)",
		defaultDBName, defaultDBName)
}

// OpenDatabase discovers and opens the store.
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}
