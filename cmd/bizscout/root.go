package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for bizscout.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bizscout",
		Short: "Find business-for-sale listings whose owners are retiring",
		Long: `bizscout crawls the paginated results of a business-for-sale search,
skips listings in excluded categories, reads every remaining listing and
keeps the ones whose reason for selling mentions retirement or emigration.

Matches are written to a CSV file (or XLSX, Markdown, JSON) at the end of
the run and recorded in a local history database as they are found.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
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
