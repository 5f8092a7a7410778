package analysis

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// System defines the public contract for analysis operations.
type System interface {
	Handler(auth Authorizer) *Handler

	// Analyze returns the current result of a rack, running the pipeline
	// first when none exists or opts.Force is set.
	Analyze(ctx context.Context, rackID uuid.UUID, opts Options) (*Summary, error)

	// Reanalyze always runs the pipeline, applying opts to the active
	// policy for this run only.
	Reanalyze(ctx context.Context, rackID uuid.UUID, opts ReanalyzeOptions) (*Summary, error)

	Find(ctx context.Context, rackID uuid.UUID) (*Summary, error)
	Hierarchy(ctx context.Context, rackID uuid.UUID, includeDevices bool) (*Hierarchy, error)
	Chain(ctx context.Context, rackID uuid.UUID, chainID string) (*chains.Chain, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Summary], error)
}

// Store persists current results and chain sets.
type Store interface {
	// Current returns the result of a rack, or ErrNotAnalyzed.
	Current(ctx context.Context, rackID uuid.UUID) (*Result, error)

	// Save upserts r as the current result of its rack in one transaction.
	// A non-nil list replaces the rack's chains; a nil list leaves the
	// previous chains in place.
	Save(ctx context.Context, r *Result, list []chains.Chain) (*Result, error)

	// Chains returns the chains of a rack ordered by position.
	Chains(ctx context.Context, rackID uuid.UUID) ([]chains.Chain, error)

	// Chain returns one chain of a rack, or ErrChainNotFound.
	Chain(ctx context.Context, rackID uuid.UUID, identifier string) (*chains.Chain, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Result], error)
}

// Policies supplies the active compliance policy. *compliance.Store
// satisfies it.
type Policies interface {
	Current() compliance.Policy
}

// Authorizer checks rack access for a caller. racks.System satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, p racks.Principal, ids []uuid.UUID) error
}
