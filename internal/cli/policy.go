package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/pkg/compliance"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate compliance policy documents",
	}

	cmd.AddCommand(newPolicyValidateCommand(rootOpts))
	cmd.AddCommand(newPolicyShowCommand(rootOpts))

	return cmd
}

type policyValidation struct {
	Path     string `json:"path"`
	Valid    bool   `json:"valid"`
	Active   string `json:"active,omitempty"`
	Versions int    `json:"versions,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newPolicyValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <policies.yaml>",
		Short:         "Check a policy document against the policy schema",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "read policy", err)
			}

			v := policyValidation{Path: path, Valid: true}
			doc, err := compliance.ParseDocument(data)
			if err != nil {
				v.Valid = false
				v.Error = err.Error()
			} else {
				v.Active = doc.Active
				v.Versions = len(doc.Policies)
			}

			if err := out.Emit(v, func(w io.Writer) {
				if v.Valid {
					fmt.Fprintf(w, "%s: valid, %d versions, active %s\n", path, v.Versions, v.Active)
					return
				}
				fmt.Fprintf(w, "%s: invalid: %s\n", path, v.Error)
			}); err != nil {
				return WrapExitError(ExitCommandError, "write output", err)
			}

			if !v.Valid {
				return &ExitError{Code: ExitFailure, Message: "policy document is invalid"}
			}
			return nil
		},
	}
}

func newPolicyShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the policy versions in effect",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			doc := e.policies.Document()
			return e.out.Emit(doc, func(w io.Writer) {
				for _, p := range doc.Policies {
					marker := " "
					if p.Version == doc.Active {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %s  completeness=%t hierarchy=%t ceiling=%dms\n",
						marker, p.Version, p.RequireCompleteness, p.RequireHierarchyIntegrity, p.PerformanceCeilingMS)
				}
			})
		},
	}
}
