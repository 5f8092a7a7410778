package batches

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/lifecycle"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// System defines the public contract for batch operations.
type System interface {
	Handler() *Handler

	// Start fails stale batches and runs the worker pool under the
	// coordinator context.
	Start(lc *lifecycle.Coordinator) error

	// Run drives the aggregator and the worker pool until ctx is
	// cancelled. Start calls it; it may be called once.
	Run(ctx context.Context) error

	// Submit admits a batch and queues its items. Every admission check
	// runs before anything is queued; a rejection wraps ErrAdmission.
	Submit(ctx context.Context, p racks.Principal, cmd SubmitCommand) (*View, error)

	Status(ctx context.Context, p racks.Principal, id uuid.UUID) (*View, error)

	// Results is available once the batch is completed or failed.
	Results(ctx context.Context, p racks.Principal, id uuid.UUID, includeDetails bool) (*Results, error)

	// Cancel stops a pending or processing batch. Queued items are
	// cancelled; items in flight finish.
	Cancel(ctx context.Context, p racks.Principal, id uuid.UUID) (*View, error)

	History(
		ctx context.Context,
		p racks.Principal,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[View], error)
}

// Store persists batches and their items.
type Store interface {
	// Create inserts b and its items in one transaction.
	Create(ctx context.Context, b *Batch) error

	// Find returns a batch with its items ordered by position.
	Find(ctx context.Context, id uuid.UUID) (*Batch, error)

	// SaveStatus writes the status and timestamps of b.
	SaveStatus(ctx context.Context, b *Batch) error

	// SaveItem writes one item outcome.
	SaveItem(ctx context.Context, batchID uuid.UUID, it *Item) error

	// CountActive counts pending and processing batches of a user.
	CountActive(ctx context.Context, userID uuid.UUID) (int, error)

	History(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Batch], error)

	// FailStale marks every pending or processing batch failed, with its
	// unfinished items failed with reason. It returns the batches changed.
	FailStale(ctx context.Context, reason string) (int, error)
}

// Analyzer runs one rack analysis. analysis.System satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, rackID uuid.UUID, opts analysis.Options) (*analysis.Summary, error)
}

// Authorizer checks rack access for a caller. racks.System satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, p racks.Principal, ids []uuid.UUID) error
}
