// Package localstore keeps analysis results in a single SQLite file so the
// command line tool can analyze racks without a PostgreSQL deployment.
package localstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/pagination"
	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

const upsertResult = `
	INSERT INTO rack_analyses(
		id, rack_id, status, total_chains_detected, max_nesting_depth, total_devices,
		device_type_breakdown, duration_ms, constitutional_compliant, compliance_issues,
		compliance_score, policy_version, warnings, error, rack_type, rack_name,
		format_version, processed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (rack_id) DO UPDATE SET
		status = excluded.status,
		total_chains_detected = excluded.total_chains_detected,
		max_nesting_depth = excluded.max_nesting_depth,
		total_devices = excluded.total_devices,
		device_type_breakdown = excluded.device_type_breakdown,
		duration_ms = excluded.duration_ms,
		constitutional_compliant = excluded.constitutional_compliant,
		compliance_issues = excluded.compliance_issues,
		compliance_score = excluded.compliance_score,
		policy_version = excluded.policy_version,
		warnings = excluded.warnings,
		error = excluded.error,
		rack_type = excluded.rack_type,
		rack_name = excluded.rack_name,
		format_version = excluded.format_version,
		processed_at = excluded.processed_at
	RETURNING id`

const insertChain = `
	INSERT INTO nested_chains(
		rack_id, analysis_id, identifier, name, source_path, parent_id, depth,
		position, device_count, is_empty, chain_kind, devices)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLite resolves "main" to the attached database file.
var (
	projection      = analysis.ResultProjection("main")
	chainProjection = analysis.ChainProjection("main")
)

// Store implements analysis.Store over SQLite.
type Store struct {
	db         *sql.DB
	pagination pagination.Config
}

// Open creates or opens the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string, cfg pagination.Config) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// one connection: SQLite allows a single writer, and an in-memory
	// database lives only as long as its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, pagination: cfg}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) Current(ctx context.Context, rackID uuid.UUID) (*analysis.Result, error) {
	q, args := query.NewBuilder(projection).BuildSingle("RackID", rackID)

	r, err := repository.QueryOne(ctx, s.db, q, args, analysis.ScanResult)
	if err != nil {
		return nil, mapError(err, analysis.ErrNotAnalyzed)
	}
	return &r, nil
}

func (s *Store) Save(ctx context.Context, r *analysis.Result, list []chains.Chain) (*analysis.Result, error) {
	breakdown, issues, warnings, err := analysis.EncodeResult(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	args := []any{
		r.ID, r.RackID, r.Status, r.TotalChains, r.MaxNestingDepth, r.TotalDevices,
		breakdown, r.DurationMS, r.Compliant, issues,
		r.Score, r.PolicyVersion, warnings, r.Error, r.RackType, r.RackName,
		r.FormatVersion, r.ProcessedAt.UTC(),
	}

	saved, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (analysis.Result, error) {
		out := *r
		if err := tx.QueryRowContext(ctx, upsertResult, args...).Scan(&out.ID); err != nil {
			return out, err
		}

		if list == nil {
			return out, nil
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM nested_chains WHERE rack_id = ?", r.RackID); err != nil {
			return out, fmt.Errorf("clear chains: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertChain)
		if err != nil {
			return out, err
		}
		defer stmt.Close()

		for i := range list {
			c := &list[i]
			devices, err := analysis.EncodeDevices(c)
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
		return nil, mapError(err, analysis.ErrNotFound)
	}
	return &saved, nil
}

func (s *Store) Chains(ctx context.Context, rackID uuid.UUID) ([]chains.Chain, error) {
	q, args := query.
		NewBuilder(chainProjection, analysis.PositionSort).
		WhereEquals("RackID", rackID).
		Build()

	list, err := repository.QueryMany(ctx, s.db, q, args, analysis.ScanChain)
	if err != nil {
		return nil, fmt.Errorf("query chains: %w", err)
	}
	return list, nil
}

func (s *Store) Chain(ctx context.Context, rackID uuid.UUID, identifier string) (*chains.Chain, error) {
	q, args := query.
		NewBuilder(chainProjection).
		WhereEquals("RackID", rackID).
		WhereEquals("Identifier", identifier).
		BuildSingleOrNull()

	c, err := repository.QueryOne(ctx, s.db, q, args, analysis.ScanChain)
	if err != nil {
		return nil, mapError(err, analysis.ErrChainNotFound)
	}
	return &c, nil
}

func (s *Store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters analysis.Filters,
) (*pagination.PageResult[analysis.Result], error) {
	page.Normalize(s.pagination)

	qb := query.
		NewBuilder(projection, analysis.DefaultSort).
		Like("LIKE").
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
	list, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, analysis.ScanResult)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}

// mapError adds the SQLite constraint codes to repository.MapError.
func mapError(err, notFound error) error {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %w", analysis.ErrDuplicate, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %w", notFound, err)
		}
	}
	return repository.MapError(err, notFound, analysis.ErrDuplicate)
}
