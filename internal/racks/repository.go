package racks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a rack repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "racks"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Rack], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "StorageKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count racks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	list, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRack)
	if err != nil {
		return nil, fmt.Errorf("query racks: %w", err)
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Rack, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rack, err := repository.QueryOne(ctx, r.db, q, args, scanRack)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rack, nil
}

func (r *repo) Authorize(ctx context.Context, p Principal, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	q, args := query.NewBuilder(projection).WhereIn("ID", values).Build()
	found, err := repository.QueryMany(ctx, r.db, q, args, scanRack)
	if err != nil {
		return fmt.Errorf("query racks: %w", err)
	}

	return authorize(p, ids, found)
}

// authorize checks ids in request order so the reported failure is stable.
func authorize(p Principal, ids []uuid.UUID, found []Rack) error {
	owners := make(map[uuid.UUID]uuid.UUID, len(found))
	for _, rack := range found {
		owners[rack.ID] = rack.OwnerID
	}

	for _, id := range ids {
		owner, ok := owners[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !p.CanAccess(owner) {
			return fmt.Errorf("%w: %s", ErrForbidden, id)
		}
	}
	return nil
}
