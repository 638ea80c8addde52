package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/livedoc/livedoc/internal/config"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
	Long:  `Debug utilities for troubleshooting livedoc configuration and setup.`,
}

var debugConfigCmd = &cobra.Command{
	Use:   "config [document] [port]",
	Short: "Show the resolved configuration",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runDebugConfig,
}

var debugPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show system paths",
	RunE:  runDebugPaths,
}

func init() {
	addServeFlags(debugConfigCmd)

	debugCmd.AddCommand(debugConfigCmd)
	debugCmd.AddCommand(debugPathsCmd)
}

func runDebugConfig(cmd *cobra.Command, args []string) error {
	cfg, badPort, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if badPort != "" {
		fmt.Fprintf(os.Stderr, "invalid port %q, using default port %d\n", badPort, config.DefaultPort)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func runDebugPaths(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "livedoc System Paths:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Config:   %s\n", paths.Config)
	fmt.Fprintf(out, "  State:    %s\n", paths.State)
	fmt.Fprintf(out, "  Logs:     %s\n", filepath.Join(paths.State, "logs"))
	return nil
}
