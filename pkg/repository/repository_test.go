package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/mattn/go-sqlite3"

	"github.com/JaimeStill/racksmith/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

type item struct {
	rack   string
	status string
}

func scanItem(s repository.Scanner) (item, error) {
	var i item
	err := s.Scan(&i.rack, &i.status)
	return i, err
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE batch_items (rack_id TEXT PRIMARY KEY, status TEXT NOT NULL)`); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")
	check := &pgconn.PgError{Code: "23514", ConstraintName: "batch_items_status_check"}

	tests := []struct {
		name     string
		err      error
		want     error
		wantText string
	}{
		{"nil", nil, nil, ""},
		{"no rows", sql.ErrNoRows, errNotFound, ""},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "racks_blob_key_key"}, errDuplicate, "racks_blob_key_key"},
		{"foreign key violation", &pgconn.PgError{Code: "23503", ConstraintName: "rack_analyses_rack_id_fkey"}, errNotFound, "rack_analyses_rack_id_fkey"},
		{"other pg error", check, check, ""},
		{"passthrough", other, other, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if tt.wantText != "" && !strings.Contains(got.Error(), tt.wantText) {
				t.Errorf("error %q should name %s", got, tt.wantText)
			}
		})
	}
}

func TestWithTx(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	n, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (int, error) {
		for _, rack := range []string{"r1", "r2"} {
			if _, err := tx.ExecContext(ctx, `INSERT INTO batch_items VALUES ($1, 'pending')`, rack); err != nil {
				return 0, err
			}
		}
		return 2, nil
	})
	if err != nil || n != 2 {
		t.Fatalf("commit: got %d, %v", n, err)
	}

	failure := errors.New("worker cancelled")
	_, err = repository.WithTx(ctx, db, func(tx *sql.Tx) (int, error) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO batch_items VALUES ('r3', 'pending')`); err != nil {
			return 0, err
		}
		return 0, failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("rollback: got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM batch_items`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("rolled back insert should not persist: got %d rows", count)
	}
}

func TestQueries(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO batch_items VALUES ('r1', 'succeeded'), ('r2', 'pending')`); err != nil {
		t.Fatal(err)
	}

	got, err := repository.QueryOne(ctx, db, `SELECT rack_id, status FROM batch_items WHERE rack_id = $1`, []any{"r1"}, scanItem)
	if err != nil || got.status != "succeeded" {
		t.Errorf("QueryOne: got %+v, %v", got, err)
	}

	_, err = repository.QueryOne(ctx, db, `SELECT rack_id, status FROM batch_items WHERE rack_id = $1`, []any{"r9"}, scanItem)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("QueryOne missing: got %v", err)
	}

	list, err := repository.QueryMany(ctx, db, `SELECT rack_id, status FROM batch_items ORDER BY rack_id`, nil, scanItem)
	if err != nil || len(list) != 2 || list[1].rack != "r2" {
		t.Errorf("QueryMany: got %+v, %v", list, err)
	}

	empty, err := repository.QueryMany(ctx, db, `SELECT rack_id, status FROM batch_items WHERE status = $1`, []any{"failed"}, scanItem)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("QueryMany empty: got %#v, %v", empty, err)
	}

	if err := repository.ExecExpectOne(ctx, db, `UPDATE batch_items SET status = 'running' WHERE rack_id = $1`, "r2"); err != nil {
		t.Errorf("ExecExpectOne: %v", err)
	}
	if err := repository.ExecExpectOne(ctx, db, `UPDATE batch_items SET status = 'running' WHERE rack_id = $1`, "r9"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ExecExpectOne missing: got %v", err)
	}
}
