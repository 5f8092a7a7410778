package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/pkg/formatting"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	Force     bool
	CeilingMS int64
}

// fileResult pairs an analysis summary with the file it came from.
type fileResult struct {
	Path string `json:"path"`
	*analysis.Summary
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file.adg>...",
		Short: "Analyze rack documents",
		Long: `Analyze one or more rack documents and store the results.

A stored result is reused unless --force is set. --ceiling overrides the
performance ceiling of the active policy for this run and always
reanalyzes. The command exits 1 when any rack fails analysis or is not
compliant.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "reanalyze even when a stored result exists")
	cmd.Flags().Int64Var(&opts.CeilingMS, "ceiling", 0, "performance ceiling in milliseconds for this run")

	return cmd
}

func runAnalyze(rootOpts *RootOptions, opts *AnalyzeOptions, paths []string, cmd *cobra.Command) error {
	e, err := newEngine(rootOpts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	results := make([]fileResult, 0, len(paths))
	failed := 0

	for _, path := range paths {
		id, err := e.source.Register(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "register rack", err)
		}

		var s *analysis.Summary
		if opts.CeilingMS > 0 {
			ceiling := opts.CeilingMS
			s, err = e.sys.Reanalyze(ctx, id, analysis.ReanalyzeOptions{PerformanceCeilingMS: &ceiling})
		} else {
			s, err = e.sys.Analyze(ctx, id, analysis.Options{Force: opts.Force})
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "analyze "+path, err)
		}

		e.out.VerboseLog("%s (%s): %s in %dms", path, fileSize(path), s.Status, s.DurationMS)
		if s.Status != analysis.StatusSucceeded || !s.Compliant {
			failed++
		}
		results = append(results, fileResult{Path: path, Summary: s})
	}

	if err := e.out.Emit(results, func(w io.Writer) { writeResults(w, results) }); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	if failed > 0 {
		return &ExitError{
			Code:    ExitFailure,
			Message: fmt.Sprintf("%d of %d racks failed or are not compliant", failed, len(results)),
		}
	}
	return nil
}

func writeResults(w io.Writer, results []fileResult) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeSummary(w, r.Path, r.Summary)
	}
}

func writeSummary(w io.Writer, path string, s *analysis.Summary) {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  rack        %s (%s, format %s)\n", orDash(s.RackName), orDash(s.RackType), orDash(s.FormatVersion))
	fmt.Fprintf(w, "  status      %s in %dms\n", s.Status, s.DurationMS)
	if s.Error != nil {
		fmt.Fprintf(w, "  error       %s\n", *s.Error)
	}
	fmt.Fprintf(w, "  chains      %d across %d levels, %d devices\n", s.TotalChains, s.MaxNestingDepth, s.TotalDevices)
	fmt.Fprintf(w, "  compliance  %s, score %.1f (policy %s)\n", yesNo(s.Compliant, "compliant", "not compliant"), s.Score, s.PolicyVersion)
	for _, issue := range s.Issues {
		fmt.Fprintf(w, "    - %s\n", issue)
	}
	fmt.Fprintf(w, "  ratings     performance %s, complexity %s, efficiency %.2f\n", s.Performance, s.Complexity, s.Efficiency)
	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "  warning     %s\n", warning)
	}
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "size unknown"
	}
	return formatting.FormatBytes(info.Size(), 1)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
