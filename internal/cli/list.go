package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	Page      int
	PageSize  int
	Search    string
	Status    string
	Compliant string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored analysis results",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "results per page")
	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "match rack name or type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "succeeded or failed")
	cmd.Flags().StringVar(&opts.Compliant, "compliant", "", "true or false")

	return cmd
}

func runList(rootOpts *RootOptions, opts *ListOptions, cmd *cobra.Command) error {
	e, err := newEngine(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	page := pagination.PageRequest{Page: opts.Page, PageSize: opts.PageSize}
	if opts.Search != "" {
		page.Search = &opts.Search
	}

	filters := analysis.FiltersFromQuery(map[string][]string{
		"status":                   {opts.Status},
		"constitutional_compliant": {opts.Compliant},
	})

	result, err := e.sys.List(cmd.Context(), page, filters)
	if err != nil {
		return WrapExitError(ExitCommandError, "list results", err)
	}

	return e.out.Emit(result, func(w io.Writer) { writeList(w, result) })
}

func writeList(w io.Writer, result *pagination.PageResult[analysis.Summary]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RACK\tNAME\tSTATUS\tCHAINS\tDEPTH\tCOMPLIANT\tSCORE\tPROCESSED")
	for _, s := range result.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\t%.1f\t%s\n",
			s.RackID, orDash(s.RackName), s.Status, s.TotalChains, s.MaxNestingDepth,
			s.Compliant, s.Score, s.ProcessedAt.Format("2006-01-02 15:04:05"),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d, %d results\n", result.Page, result.TotalPages, result.Total)
}
