package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configPath string
	serverName string
	auditLog   string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "tarim",
		Short:         "MCP tool server over stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a tool profile over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serverName, "server", "", "server profile name from the config")
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default: built-in profiles)")
	serveCmd.Flags().StringVar(&auditLog, "audit-log", "", "path to audit log file (default: stderr)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.MarkFlagRequired("server")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&configPath, "config", "tarim.yaml", "path to config file")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tools a profile serves with their input schemas",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	toolsCmd.Flags().StringVar(&serverName, "server", "", "server profile name from the config")
	toolsCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default: built-in profiles)")
	toolsCmd.MarkFlagRequired("server")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tarim v"+version)
		},
	}

	root.AddCommand(serveCmd, validateCmd, toolsCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
