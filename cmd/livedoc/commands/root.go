// Package commands provides the CLI commands for livedoc.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	logFile   bool
)

var rootCmd = &cobra.Command{
	Use:   "livedoc <document> [port]",
	Short: "Serve a document and reload viewers when it changes",
	Long: `livedoc serves a single document (usually a PDF) over HTTP together with a
viewer page. Whenever the file's content changes on disk, every open viewer
reloads it.

The document can also be set in a livedoc.json/.jsonc/.yaml config file or
through LIVEDOC_DOCUMENT.`,
	Version:       Version,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print human-readable logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also write logs to a rotating file in the state directory")

	rootCmd.SetVersionTemplate(fmt.Sprintf("livedoc %s (%s)\n", Version, BuildTime))

	addServeFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(debugCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "livedoc %s (%s)\n", Version, BuildTime)
	},
}
