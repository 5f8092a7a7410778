// Package cli implements the racksmith command line tool. It runs the
// analysis pipeline against .adg files on disk and keeps results in a
// local SQLite database.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string
	DB      string
	Policy  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the racksmith CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "racksmith",
		Short: "Analyze the nested chains of device-group racks",
		Long: `racksmith reads device-group rack documents (.adg), discovers every chain
of the top-level rack and of racks nested inside it, and checks the
result against a versioned compliance policy.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "racksmith.db", "SQLite database path (:memory: keeps nothing)")
	cmd.PersistentFlags().StringVar(&opts.Policy, "policy", "", "policy document path (built-in policies when empty)")

	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewChainCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))

	return cmd
}
