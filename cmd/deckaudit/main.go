// Package main implements the deckaudit CLI for auditing decks without the server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set during build
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deckaudit",
		Short: "Cross-check the numbers in a deck against its spreadsheets",
		Long: `deckaudit extracts every number from a PowerPoint deck and looks for it in
one or more spreadsheets, reporting each as a match, a mismatch with a
suggested correction, or untraceable.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newExtractCmd())
	return rootCmd
}
