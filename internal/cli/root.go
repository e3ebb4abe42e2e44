package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/logging"
	"github.com/framework-cg/pgload/pkg/pgload"
)

var rootCmd = &cobra.Command{
	Use:   "pgload",
	Short: "Bulk loader for PostgreSQL",
	Long: `pgload moves tabular data into PostgreSQL tables.

It reads ;-separated CSV exports or query results, applies optional
transforms, and writes the rows with chunked multi-row INSERT or
INSERT ... ON CONFLICT statements inside one transaction per call.
A failed write leaves the destination table unchanged.

Runs can be recorded in the processamento / processamento_log tables
(see 'pgload tracking init').

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration, reference, policy or transform setup
  11 - Database connection failed
  13 - The destination rejected the write`,
	SilenceUsage: true,
}

type rootFlagValues struct {
	verbose bool
	config  string
	logFile string
}

var rootFlags rootFlagValues

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgload")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false,
		"Enable verbose output for all commands")
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "",
		"Path to pgload.yaml, or the directory holding it (default: ./pgload.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logFile, "log-file", "",
		"Also append log lines to this file (.log is appended when missing)")
}

// newLogger returns the command logger and a cleanup func closing the log file, if any.
func newLogger(stderr io.Writer) (pgload.Logger, func(), error) {
	if rootFlags.logFile == "" {
		return logging.NewConsoleLoggerTo(stderr, rootFlags.verbose), func() {}, nil
	}

	f, err := logging.OpenLogFile(filepath.Dir(rootFlags.logFile), filepath.Base(rootFlags.logFile), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	out := io.MultiWriter(stderr, f)
	return logging.NewConsoleLoggerTo(out, rootFlags.verbose), func() { _ = f.Close() }, nil
}
