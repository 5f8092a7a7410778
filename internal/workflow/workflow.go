// Package workflow runs the analysis pipeline for one rack: load the stored
// document, read it into an element tree, extract the chain hierarchy, and
// validate the hierarchy against a compliance policy.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
)

// Result is the outcome of one pipeline run.
//
// A document that cannot be parsed is still a result: Failure holds the
// parse-class error, Extraction is nil, and Report carries the failure
// issues. Errors returned by Execute are reserved for missing documents,
// storage faults and cancellation.
type Result struct {
	RackID      uuid.UUID
	Extraction  *chains.Extraction
	Report      compliance.Report
	Duration    time.Duration
	Failure     error
	CompletedAt time.Time
}

// Failed reports whether the document could not be analyzed.
func (r *Result) Failed() bool {
	return r.Failure != nil
}

// DurationMS returns Duration in whole milliseconds.
func (r *Result) DurationMS() int64 {
	return r.Duration.Milliseconds()
}

type stage struct {
	name string
	run  func(ctx context.Context, rt *Runtime, s *state) error
}

// load → read → extract → validate
var stages = []stage{
	{name: "load", run: loadStage},
	{name: "read", run: readStage},
	{name: "extract", run: extractStage},
	{name: "validate", run: validateStage},
}

// Lease guards the rack for the length of a run. Refresh renews it and
// reports whether the run still owns the rack.
type Lease interface {
	Refresh() bool
}

// ErrLeaseLost indicates the run no longer owns the rack and stopped
// before writing anything.
var ErrLeaseLost = errors.New("rack lease lost")

// Execute runs the pipeline for rackID under policy. The context is
// checked between stages, so shutdown abandons a run at the next boundary.
func Execute(ctx context.Context, rt *Runtime, rackID uuid.UUID, policy compliance.Policy) (*Result, error) {
	return ExecuteLeased(ctx, rt, rackID, policy, nil)
}

// ExecuteLeased is Execute with lease renewed before every stage. A stage
// that runs longer than the lease lifetime loses the rack at the next
// boundary.
func ExecuteLeased(
	ctx context.Context,
	rt *Runtime,
	rackID uuid.UUID,
	policy compliance.Policy,
	lease Lease,
) (*Result, error) {
	s := &state{
		rackID: rackID,
		policy: policy,
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if lease != nil && !lease.Refresh() {
			return nil, fmt.Errorf("%s: %w", st.name, ErrLeaseLost)
		}

		if err := st.run(ctx, rt, s); err != nil {
			if errors.Is(err, adg.ErrParse) {
				rt.Logger.Warn(
					"rack document rejected",
					"rack_id", rackID,
					"stage", st.name,
					"error", err,
				)
				return s.failed(err), nil
			}
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}

		rt.Logger.Debug("stage complete", "rack_id", rackID, "stage", st.name)
	}

	return s.result(), nil
}
