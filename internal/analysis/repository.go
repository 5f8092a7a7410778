package analysis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

const upsertResult = `
	INSERT INTO rack_analyses(
		id, rack_id, status, total_chains_detected, max_nesting_depth, total_devices,
		device_type_breakdown, duration_ms, constitutional_compliant, compliance_issues,
		compliance_score, policy_version, warnings, error, rack_type, rack_name,
		format_version, processed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (rack_id) DO UPDATE SET
		status = EXCLUDED.status,
		total_chains_detected = EXCLUDED.total_chains_detected,
		max_nesting_depth = EXCLUDED.max_nesting_depth,
		total_devices = EXCLUDED.total_devices,
		device_type_breakdown = EXCLUDED.device_type_breakdown,
		duration_ms = EXCLUDED.duration_ms,
		constitutional_compliant = EXCLUDED.constitutional_compliant,
		compliance_issues = EXCLUDED.compliance_issues,
		compliance_score = EXCLUDED.compliance_score,
		policy_version = EXCLUDED.policy_version,
		warnings = EXCLUDED.warnings,
		error = EXCLUDED.error,
		rack_type = EXCLUDED.rack_type,
		rack_name = EXCLUDED.rack_name,
		format_version = EXCLUDED.format_version,
		processed_at = EXCLUDED.processed_at
	RETURNING id`

const insertChain = `
	INSERT INTO nested_chains(
		rack_id, analysis_id, identifier, name, source_path, parent_id, depth,
		position, device_count, is_empty, chain_kind, devices)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type pgStore struct {
	db         *sql.DB
	pagination pagination.Config
}

// NewStore creates the PostgreSQL Store.
func NewStore(db *sql.DB, pagination pagination.Config) Store {
	return &pgStore{db: db, pagination: pagination}
}

func (s *pgStore) Current(ctx context.Context, rackID uuid.UUID) (*Result, error) {
	q, args := query.NewBuilder(projection).BuildSingle("RackID", rackID)

	r, err := repository.QueryOne(ctx, s.db, q, args, ScanResult)
	if err != nil {
		return nil, repository.MapError(err, ErrNotAnalyzed, ErrDuplicate)
	}
	return &r, nil
}

func (s *pgStore) Save(ctx context.Context, r *Result, list []chains.Chain) (*Result, error) {
	breakdown, issues, warnings, err := EncodeResult(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	args := []any{
		r.ID, r.RackID, r.Status, r.TotalChains, r.MaxNestingDepth, r.TotalDevices,
		breakdown, r.DurationMS, r.Compliant, issues,
		r.Score, r.PolicyVersion, warnings, r.Error, r.RackType, r.RackName,
		r.FormatVersion, r.ProcessedAt,
	}

	saved, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (Result, error) {
		out := *r
		if err := tx.QueryRowContext(ctx, upsertResult, args...).Scan(&out.ID); err != nil {
			return out, err
		}

		if list == nil {
			return out, nil
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM nested_chains WHERE rack_id = $1", r.RackID); err != nil {
			return out, fmt.Errorf("clear chains: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertChain)
		if err != nil {
			return out, err
		}
		defer stmt.Close()

		for i := range list {
			c := &list[i]
			devices, err := EncodeDevices(c)
			if err != nil {
				return out, fmt.Errorf("encode chain %s: %w", c.Identifier, err)
			}
			if _, err := stmt.ExecContext(ctx,
				r.RackID, out.ID, c.Identifier, c.Name, c.SourcePath, c.ParentID, c.Depth,
				c.Position, c.DeviceCount, c.IsEmpty, c.Kind, devices,
			); err != nil {
				return out, fmt.Errorf("insert chain %s: %w", c.Identifier, err)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &saved, nil
}

func (s *pgStore) Chains(ctx context.Context, rackID uuid.UUID) ([]chains.Chain, error) {
	q, args := query.
		NewBuilder(chainProjection, PositionSort).
		WhereEquals("RackID", rackID).
		Build()

	list, err := repository.QueryMany(ctx, s.db, q, args, ScanChain)
	if err != nil {
		return nil, fmt.Errorf("query chains: %w", err)
	}
	return list, nil
}

func (s *pgStore) Chain(ctx context.Context, rackID uuid.UUID, identifier string) (*chains.Chain, error) {
	q, args := query.
		NewBuilder(chainProjection).
		WhereEquals("RackID", rackID).
		WhereEquals("Identifier", identifier).
		BuildSingleOrNull()

	c, err := repository.QueryOne(ctx, s.db, q, args, ScanChain)
	if err != nil {
		return nil, repository.MapError(err, ErrChainNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (s *pgStore) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Result], error) {
	page.Normalize(s.pagination)

	qb := query.
		NewBuilder(projection, DefaultSort).
		WhereSearch(page.Search, "RackName", "RackType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	list, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, ScanResult)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}
