package racks

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "racks", "r").
	Project("id", "ID").
	Project("name", "Name").
	Project("owner_id", "OwnerID").
	Project("storage_key", "StorageKey").
	Project("size_bytes", "SizeBytes").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for rack queries.
// Name uses case-insensitive contains matching.
type Filters struct {
	Name    *string    `json:"name,omitempty"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("OwnerID", f.OwnerID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if o := values.Get("owner_id"); o != "" {
		if id, err := uuid.Parse(o); err == nil {
			f.OwnerID = &id
		}
	}

	return f
}

func scanRack(s repository.Scanner) (Rack, error) {
	var r Rack
	err := s.Scan(
		&r.ID,
		&r.Name,
		&r.OwnerID,
		&r.StorageKey,
		&r.SizeBytes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
