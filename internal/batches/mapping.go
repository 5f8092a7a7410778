package batches

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "batches", "b").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("priority", "Priority").
	Project("force", "Force").
	Project("notify", "Notify").
	Project("status", "Status").
	Project("submitted_at", "SubmittedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var itemProjection = query.
	NewProjectionMap("public", "batch_items", "i").
	Project("batch_id", "BatchID").
	Project("rack_id", "RackID").
	Project("position", "Position").
	Project("status", "Status").
	Project("error", "Error").
	Project("constitutional_compliant", "Compliant").
	Project("chains_detected", "ChainsDetected").
	Project("duration_ms", "DurationMS").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "SubmittedAt",
	Descending: true,
}

var positionSort = query.SortField{Field: "Position"}

// Filters contains optional filtering criteria for batch queries.
type Filters struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Status   *string    `json:"status,omitempty"`
	Priority *string    `json:"priority,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("UserID", f.UserID).
		WhereEquals("Status", f.Status).
		WhereEquals("Priority", f.Priority)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if u := values.Get("user_id"); u != "" {
		if id, err := uuid.Parse(u); err == nil {
			f.UserID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if p := values.Get("priority"); p != "" {
		f.Priority = &p
	}

	return f
}

func scanBatch(s repository.Scanner) (Batch, error) {
	var b Batch
	err := s.Scan(
		&b.ID,
		&b.UserID,
		&b.Priority,
		&b.Force,
		&b.Notify,
		&b.Status,
		&b.SubmittedAt,
		&b.StartedAt,
		&b.CompletedAt,
	)
	b.Items = []Item{}
	return b, err
}

// itemRow is an item with the batch it belongs to.
type itemRow struct {
	batchID uuid.UUID
	item    Item
}

func scanItem(s repository.Scanner) (itemRow, error) {
	var r itemRow
	err := s.Scan(
		&r.batchID,
		&r.item.RackID,
		&r.item.Position,
		&r.item.Status,
		&r.item.Error,
		&r.item.Compliant,
		&r.item.ChainsDetected,
		&r.item.DurationMS,
		&r.item.StartedAt,
		&r.item.CompletedAt,
	)
	return r, err
}
