package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/pkg/chains"
)

// NewChainCommand creates the chain command.
func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <file.adg> <identifier>",
		Short: "Print one chain of a rack",
		Long: `Print one chain of a rack with its devices and their parameters.

Identifiers are positional paths such as c1.d0.c0: the first chain of
the rack held by device 0 of top-level chain 1.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runChain(rootOpts *RootOptions, path, identifier string, cmd *cobra.Command) error {
	e, err := newEngine(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	id, _, err := e.current(ctx, path)
	if err != nil {
		return err
	}

	c, err := e.sys.Chain(ctx, id, identifier)
	if err != nil {
		return WrapExitError(ExitCommandError, "load chain", err)
	}

	return e.out.Emit(c, func(w io.Writer) { writeChain(w, c) })
}

func writeChain(w io.Writer, c *chains.Chain) {
	fmt.Fprintf(w, "%s  %s\n", c.Identifier, c.Name)
	fmt.Fprintf(w, "  kind    %s\n", c.Kind)
	fmt.Fprintf(w, "  depth   %d\n", c.Depth)
	if c.ParentID != nil {
		fmt.Fprintf(w, "  parent  %s\n", *c.ParentID)
	}
	fmt.Fprintf(w, "  source  %s\n", c.SourcePath)

	for i, d := range c.Devices {
		fmt.Fprintf(w, "  d%d  %s <%s>%s\n", i, d.Name, d.Type, yesNo(d.Enabled, "", " (off)"))
		if len(d.Chains) > 0 {
			fmt.Fprintf(w, "      chains: %v\n", d.Chains)
		}

		for _, name := range slices.Sorted(maps.Keys(d.Parameters)) {
			fmt.Fprintf(w, "      %s = %v\n", name, d.Parameters[name])
		}
	}
}
