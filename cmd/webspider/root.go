// Package main provides the entry point for the webspider CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webspider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webspider",
		Short: "Polite concurrent web crawler",
		Long: `Webspider is a polite concurrent web crawler.

It fetches pages breadth first from one or more seed URLs, honoring
robots.txt rules and per-domain rate limits, and records every page
outcome in a local SQLite database for later inspection.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
