package batches

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

type pgStore struct {
	db         *sql.DB
	pagination pagination.Config
}

// NewStore creates the PostgreSQL Store.
func NewStore(db *sql.DB, pagination pagination.Config) Store {
	return &pgStore{db: db, pagination: pagination}
}

func (s *pgStore) Create(ctx context.Context, b *Batch) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batches(id, user_id, priority, force, notify, status, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, b.UserID, b.Priority, b.Force, b.Notify, b.Status, b.SubmittedAt,
		)
		if err != nil {
			return struct{}{}, err
		}

		for _, it := range b.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO batch_items(batch_id, rack_id, position, status)
				VALUES ($1, $2, $3, $4)`,
				b.ID, it.RackID, it.Position, it.Status,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert item %s: %w", it.RackID, err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrAdmission)
	}
	return nil
}

func (s *pgStore) Find(ctx context.Context, id uuid.UUID) (*Batch, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	b, err := repository.QueryOne(ctx, s.db, q, args, scanBatch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAdmission)
	}

	list := []*Batch{&b}
	if err := s.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &b, nil
}

// loadItems fills the items of every batch in list with one query.
func (s *pgStore) loadItems(ctx context.Context, list []*Batch) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]any, len(list))
	index := make(map[uuid.UUID]*Batch, len(list))
	for i, b := range list {
		ids[i] = b.ID
		index[b.ID] = b
	}

	q, args := query.
		NewBuilder(itemProjection, positionSort).
		WhereIn("BatchID", ids).
		Build()

	rows, err := repository.QueryMany(ctx, s.db, q, args, scanItem)
	if err != nil {
		return fmt.Errorf("query batch items: %w", err)
	}

	for _, r := range rows {
		if b, ok := index[r.batchID]; ok {
			b.Items = append(b.Items, r.item)
		}
	}
	return nil
}

func (s *pgStore) SaveStatus(ctx context.Context, b *Batch) error {
	err := repository.ExecExpectOne(ctx, s.db, `
		UPDATE batches SET status = $2, started_at = $3, completed_at = $4
		WHERE id = $1`,
		b.ID, b.Status, b.StartedAt, b.CompletedAt,
	)
	return repository.MapError(err, ErrNotFound, ErrAdmission)
}

func (s *pgStore) SaveItem(ctx context.Context, batchID uuid.UUID, it *Item) error {
	err := repository.ExecExpectOne(ctx, s.db, `
		UPDATE batch_items SET
			status = $3, error = $4, constitutional_compliant = $5,
			chains_detected = $6, duration_ms = $7, started_at = $8, completed_at = $9
		WHERE batch_id = $1 AND rack_id = $2`,
		batchID, it.RackID, it.Status, it.Error, it.Compliant,
		it.ChainsDetected, it.DurationMS, it.StartedAt, it.CompletedAt,
	)
	return repository.MapError(err, ErrNotFound, ErrAdmission)
}

func (s *pgStore) CountActive(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM batches
		WHERE user_id = $1 AND status IN ('pending', 'processing')`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active batches: %w", err)
	}
	return n, nil
}

func (s *pgStore) History(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Batch], error) {
	page.Normalize(s.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	list, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	refs := make([]*Batch, len(list))
	for i := range list {
		refs[i] = &list[i]
	}
	if err := s.loadItems(ctx, refs); err != nil {
		return nil, err
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *pgStore) FailStale(ctx context.Context, reason string) (int, error) {
	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE batch_items SET status = 'failed', error = $1, completed_at = NOW()
			WHERE status IN ('queued', 'processing')
			AND batch_id IN (SELECT id FROM batches WHERE status IN ('pending', 'processing'))`,
			reason,
		); err != nil {
			return 0, fmt.Errorf("fail stale items: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE batches SET status = 'failed', completed_at = NOW()
			WHERE status IN ('pending', 'processing')`)
		if err != nil {
			return 0, fmt.Errorf("fail stale batches: %w", err)
		}

		n, err := res.RowsAffected()
		return int(n), err
	})
}
