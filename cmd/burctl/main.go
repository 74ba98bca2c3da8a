// Package main provides burctl, a command-line tool for working with bulk
// update requests directly against the tagwright database.
//
// Usage:
//
//	burctl parse script.txt
//	burctl check script.txt
//	burctl list --status pending
//	burctl approve 42 --as albert
//	burctl user add albert --level admin --password 'correct horse'
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const appName = "burctl"

func main() {
	if err := rootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand that opens the database.
type globalFlags struct {
	dbPath   string
	envFile  string
	logLevel string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Inspect, validate and decide bulk update requests",
		Long: `burctl works on a tagwright database without going through the HTTP API.

It can parse and validate scripts, list requests, approve or reject them
on behalf of a user, and manage accounts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.dbPath, "db-path", "", "Path to the SQLite database (default: ~/Tagwright/tagwright.db)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to .env file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		parseCmd(),
		checkCmd(flags),
		listCmd(flags),
		decideCmd(flags, "approve"),
		decideCmd(flags, "reject"),
		userCmd(flags),
	)

	return cmd
}
