package racks

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// System defines the public contract for rack reference operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Rack], error)

	Find(ctx context.Context, id uuid.UUID) (*Rack, error)

	// Authorize verifies that every id names an existing rack the principal
	// may access. The first failure is returned wrapping ErrNotFound or
	// ErrForbidden.
	Authorize(ctx context.Context, p Principal, ids []uuid.UUID) error
}
