package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/locks"
	"github.com/JaimeStill/racksmith/pkg/metrics"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// Deps bundles the collaborators of the orchestrator.
type Deps struct {
	Store      Store
	Runtime    *workflow.Runtime
	Policies   Policies
	Locks      *locks.Table[uuid.UUID]
	Metrics    *metrics.Registry
	Logger     *slog.Logger
	Pagination pagination.Config
}

type orchestrator struct {
	store      Store
	runtime    *workflow.Runtime
	policies   Policies
	locks      *locks.Table[uuid.UUID]
	metrics    *metrics.Registry
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the analysis orchestrator implementing the System interface.
// A nil Locks table gets one without takeover.
func New(deps Deps) System {
	lt := deps.Locks
	if lt == nil {
		lt = locks.New[uuid.UUID](0)
	}
	return &orchestrator{
		store:      deps.Store,
		runtime:    deps.Runtime,
		policies:   deps.Policies,
		locks:      lt,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With("system", "analysis"),
		pagination: deps.Pagination,
	}
}

func (o *orchestrator) Handler(auth Authorizer) *Handler {
	return NewHandler(o, auth, o.logger, o.pagination)
}

func (o *orchestrator) Analyze(ctx context.Context, rackID uuid.UUID, opts Options) (*Summary, error) {
	if !opts.Force {
		current, err := o.store.Current(ctx, rackID)
		if err == nil {
			s := Summarize(*current)
			return &s, nil
		}
		if !errors.Is(err, ErrNotAnalyzed) {
			return nil, err
		}
	}
	return o.run(ctx, rackID, o.policies.Current())
}

func (o *orchestrator) Reanalyze(ctx context.Context, rackID uuid.UUID, opts ReanalyzeOptions) (*Summary, error) {
	policy := o.policies.Current()
	if opts.PerformanceCeilingMS != nil {
		if *opts.PerformanceCeilingMS <= 0 {
			return nil, fmt.Errorf("%w: performance_ceiling_ms must be positive", ErrInvalidRequest)
		}
		policy = policy.WithCeiling(*opts.PerformanceCeilingMS)
	}
	return o.run(ctx, rackID, policy)
}

func (o *orchestrator) run(ctx context.Context, rackID uuid.UUID, policy compliance.Policy) (*Summary, error) {
	hold, ok := o.locks.TryAcquire(rackID)
	if !ok {
		o.metrics.RecordConflict()
		return nil, ErrConcurrencyConflict
	}
	defer hold.Release()

	wr, err := workflow.ExecuteLeased(ctx, o.runtime, rackID, policy, hold)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rackID)
		case errors.Is(err, workflow.ErrLeaseLost):
			o.metrics.RecordConflict()
			return nil, fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
		}
		return nil, fmt.Errorf("analyze %s: %w", rackID, err)
	}

	// the hold may have lapsed during validation
	if !hold.Refresh() {
		o.metrics.RecordConflict()
		return nil, fmt.Errorf("%w: %w", ErrConcurrencyConflict, workflow.ErrLeaseLost)
	}

	r, list := resultFrom(wr)

	saved, err := o.store.Save(ctx, r, list)
	if err != nil {
		return nil, fmt.Errorf("save analysis %s: %w", rackID, err)
	}

	o.metrics.RecordAnalysis(
		string(saved.Status),
		saved.Compliant,
		wr.Duration,
		saved.TotalChains,
		saved.MaxNestingDepth,
		saved.Issues,
	)
	o.metrics.RecordWarnings(len(saved.Warnings))

	o.logger.Info(
		"rack analyzed",
		"rack_id", rackID,
		"status", saved.Status,
		"chains", saved.TotalChains,
		"depth", saved.MaxNestingDepth,
		"compliant", saved.Compliant,
		"duration_ms", saved.DurationMS,
		"policy_version", saved.PolicyVersion,
	)

	s := Summarize(*saved)
	return &s, nil
}

// resultFrom converts a pipeline result into the stored form. Failed runs
// return a nil chain list so the previous chains are kept.
func resultFrom(wr *workflow.Result) (*Result, []chains.Chain) {
	r := &Result{
		ID:                  uuid.New(),
		RackID:              wr.RackID,
		DeviceTypeBreakdown: map[string]int{},
		DurationMS:          wr.DurationMS(),
		Compliant:           wr.Report.Compliant,
		Issues:              wr.Report.Issues,
		Score:               wr.Report.Score,
		PolicyVersion:       wr.Report.PolicyVersion,
		Warnings:            []string{},
		ProcessedAt:         wr.CompletedAt.UTC(),
	}

	if wr.Failed() {
		msg := wr.Failure.Error()
		r.Status = StatusFailed
		r.Error = &msg
		r.normalize()
		return r, nil
	}

	x := wr.Extraction
	r.Status = StatusSucceeded
	r.TotalChains = len(x.Chains)
	r.MaxNestingDepth = chains.MaxDepth(x.Chains)
	r.TotalDevices = chains.TotalDevices(x.Chains)
	r.DeviceTypeBreakdown = chains.DeviceTypeBreakdown(x.Chains)
	r.Warnings = x.Warnings
	r.RackType = x.RackType
	r.RackName = x.RackName
	r.FormatVersion = x.FormatVersion
	r.normalize()

	return r, x.Chains
}

func (o *orchestrator) Find(ctx context.Context, rackID uuid.UUID) (*Summary, error) {
	r, err := o.store.Current(ctx, rackID)
	if err != nil {
		return nil, err
	}
	s := Summarize(*r)
	return &s, nil
}

func (o *orchestrator) Hierarchy(ctx context.Context, rackID uuid.UUID, includeDevices bool) (*Hierarchy, error) {
	if _, err := o.store.Current(ctx, rackID); err != nil {
		return nil, err
	}

	list, err := o.store.Chains(ctx, rackID)
	if err != nil {
		return nil, err
	}

	return &Hierarchy{
		RackID:          rackID,
		TotalChains:     len(list),
		MaxNestingDepth: chains.MaxDepth(list),
		Chains:          chains.BuildTree(list, includeDevices),
	}, nil
}

func (o *orchestrator) Chain(ctx context.Context, rackID uuid.UUID, chainID string) (*chains.Chain, error) {
	if _, err := o.store.Current(ctx, rackID); err != nil {
		return nil, err
	}
	return o.store.Chain(ctx, rackID, chainID)
}

func (o *orchestrator) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Summary], error) {
	page.Normalize(o.pagination)

	results, err := o.store.List(ctx, page, filters)
	if err != nil {
		return nil, err
	}

	data := make([]Summary, len(results.Data))
	for i, r := range results.Data {
		data[i] = Summarize(r)
	}

	out := pagination.NewPageResult(data, results.Total, results.Page, results.PageSize)
	return &out, nil
}
