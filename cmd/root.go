// Package cmd provides the CLI commands for marinedb using Cobra.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/marinedb/internal/app"
	"github.com/Zerofisher/marinedb/internal/config"
	"github.com/Zerofisher/marinedb/pkg/store/sqlstore"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// global flags
var (
	configFile string
	dbPath     string
	dbDriver   string
	dbDSN      string
	logLevel   string
	logFormat  string
	verbose    bool
)

// resolved in PersistentPreRunE
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "marinedb",
	Short: "Marine occurrence database",
	Long: `MarineDB ingests marine-mammal occurrence records from CSV sources into a
normalized relational store and answers queries over them.

  - Organisms, observers, locations, events and media are deduplicated
    across repeated ingestions
  - Re-ingesting a file replaces records by occurrence id
  - SQLite (default) or PostgreSQL storage
  - Local files or s3:// sources

Examples:
  marinedb ingest datasets/whales.csv                # Load a CSV file
  marinedb stats                                     # Aggregate counts
  marinedb observations --species "Eschrichtius robustus"
  marinedb search --species gray --from 2024-01-01 -T json
  marinedb list fields                               # Fields for -e and --where`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	// Define command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "info", Title: "Information Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML configuration file")
	pf.StringVar(&dbPath, "db", "", "SQLite database file (default "+config.DefaultDBPath+")")
	pf.StringVar(&dbDriver, "driver", "", "Storage driver: sqlite3, sqlite, postgres")
	pf.StringVar(&dbDSN, "dsn", "", "Database connection string (postgres)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text, json")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	// Add subcommands
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(speciesCmd)
	rootCmd.AddCommand(observationsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(listCmd)
}

// loadConfig resolves configuration (file, environment, flags) and installs
// the process logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		c.Database.Path = dbPath
	}
	if flags.Changed("driver") {
		c.Database.Driver = dbDriver
	}
	if flags.Changed("dsn") {
		c.Database.DSN = dbDSN
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if verbose {
		c.Log.Level = "debug"
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}

	cfg = c
	logger = slog.New(handler)
	slog.SetDefault(logger)
	return nil
}

// openStore opens the configured store. Callers close it.
func openStore(cmd *cobra.Command) (*sqlstore.Store, error) {
	return app.OpenStore(cmd.Context(), cfg, logger)
}
