// Package cmd defines and implements the CLI commands for the siteauditor executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "siteauditor",
		Short: "Samples a site's pages and audits their web quality.",
		Long: `siteauditor reads a sitemap, draws a random sample of its pages and
audits each one in a fresh headless Chrome: DOM semantics, console errors
and a Lighthouse run for performance, SEO and accessibility. Reports are
persisted as one JSON document per run and optionally to Postgres or SQLite.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); AUDITOR_* env vars override it")

	cmd.AddCommand(newAuditCmd(&cfgFile))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "siteauditor: %v\n", err)
		os.Exit(1)
	}
}
