package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/xmlstore/internal/logger"
	"github.com/joshuapare/xmlstore/store"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "xmlstorectl",
	Short: "Inspect xmlstore directories and index keys",
	Long: `xmlstorectl inspects xmlstore data directories and the
order-preserving keys used by the value index. It can encode and decode
index keys, decode node records against a store's symbol table and dump
committed nodes and index entries.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging routes store logs to stderr when --verbose is set.
func setupLogging() error {
	if !verbose || quiet {
		logger.L = logger.Discard()
		return nil
	}
	_, err := logger.Init(logger.Options{
		Enabled: true,
		Level:   slog.LevelDebug,
		Writer:  os.Stderr,
	})
	return err
}

// openStore opens a store directory read-only.
func openStore(dir string) (*store.Store, error) {
	printVerbose("Opening store: %s\n", dir)
	s, err := store.Open(dir, store.Options{ReadOnly: true, Logger: logger.L})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
