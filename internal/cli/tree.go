package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/pkg/chains"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	var devices bool

	cmd := &cobra.Command{
		Use:           "tree <file.adg>",
		Short:         "Print the chain hierarchy of a rack",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(rootOpts, args[0], devices, cmd)
		},
	}

	cmd.Flags().BoolVarP(&devices, "devices", "d", false, "include the devices of each chain")

	return cmd
}

func runTree(rootOpts *RootOptions, path string, devices bool, cmd *cobra.Command) error {
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

	h, err := e.sys.Hierarchy(ctx, id, devices)
	if err != nil {
		return WrapExitError(ExitCommandError, "load hierarchy", err)
	}

	return e.out.Emit(h, func(w io.Writer) { writeTree(w, path, h) })
}

func writeTree(w io.Writer, path string, h *analysis.Hierarchy) {
	fmt.Fprintf(w, "%s: %d chains, %d levels\n", path, h.TotalChains, h.MaxNestingDepth)
	for _, n := range h.Chains {
		writeNode(w, n, 1)
	}
}

func writeNode(w io.Writer, n *chains.Node, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(w, "%s%s  %s  [%s, %d devices]\n", indent, n.Identifier, n.Name, n.Kind, n.DeviceCount)
	for _, d := range n.Devices {
		state := ""
		if !d.Enabled {
			state = " (off)"
		}
		fmt.Fprintf(w, "%s  - %s <%s>%s\n", indent, d.Name, d.Type, state)
	}
	for _, c := range n.Children {
		writeNode(w, c, level+1)
	}
}
