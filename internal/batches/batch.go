// Package batches implements the batch reprocessing scheduler. Submitted
// batches are admitted against size, ownership and capacity limits, then
// fanned out over a fixed worker pool draining three priority queues.
// A single aggregator goroutine owns every batch state transition.
package batches

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Priority selects the queue a batch is drained from.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities in drain order.
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the batch can still change.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// ItemStatus is the lifecycle state of one rack in a batch.
type ItemStatus string

const (
	ItemQueued     ItemStatus = "queued"
	ItemProcessing ItemStatus = "processing"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
	ItemCancelled  ItemStatus = "cancelled"
)

// Terminal reports whether the item will not change again.
func (s ItemStatus) Terminal() bool {
	return s == ItemCompleted || s == ItemFailed || s == ItemCancelled
}

// Item is the outcome of one rack in a batch.
type Item struct {
	RackID         uuid.UUID  `json:"rack_id"`
	Position       int        `json:"position"`
	Status         ItemStatus `json:"status"`
	Error          *string    `json:"error"`
	Compliant      *bool      `json:"constitutional_compliant"`
	ChainsDetected *int       `json:"chains_detected"`
	DurationMS     *int64     `json:"duration_ms"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// Batch is a submitted group of racks analyzed together.
type Batch struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Priority    Priority   `json:"priority"`
	Force       bool       `json:"force"`
	Notify      bool       `json:"notify"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Items       []Item     `json:"items"`
}

// Item returns the item for rackID.
func (b *Batch) Item(rackID uuid.UUID) (*Item, bool) {
	for i := range b.Items {
		if b.Items[i].RackID == rackID {
			return &b.Items[i], true
		}
	}
	return nil, false
}

// Counts tallies items by status.
type Counts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Count tallies the items of b.
func (b *Batch) Count() Counts {
	var c Counts
	for _, it := range b.Items {
		switch it.Status {
		case ItemQueued:
			c.Queued++
		case ItemProcessing:
			c.Processing++
		case ItemCompleted:
			c.Completed++
		case ItemFailed:
			c.Failed++
		case ItemCancelled:
			c.Cancelled++
		}
	}
	return c
}

// View is a batch with its derived progress.
type View struct {
	Batch
	Counts              Counts      `json:"counts"`
	CurrentItems        []uuid.UUID `json:"current_items"`
	ProgressPercentage  float64     `json:"progress_percentage"`
	EstimatedCompletion *time.Time  `json:"estimated_completion"`
}

const perRack = 2 * time.Minute

var (
	rackMultiplier = map[Priority]float64{
		PriorityHigh:   0.5,
		PriorityNormal: 1.0,
		PriorityLow:    2.0,
	}
	queueWait = map[Priority]time.Duration{
		PriorityHigh:   time.Minute,
		PriorityNormal: 5 * time.Minute,
		PriorityLow:    15 * time.Minute,
	}
)

// NewView derives the progress of b at now.
func NewView(b Batch, now time.Time) View {
	v := View{
		Batch:        b,
		Counts:       b.Count(),
		CurrentItems: []uuid.UUID{},
	}

	for _, it := range b.Items {
		if it.Status == ItemProcessing {
			v.CurrentItems = append(v.CurrentItems, it.RackID)
		}
	}

	if total := len(b.Items); total > 0 {
		done := v.Counts.Completed + v.Counts.Failed + v.Counts.Cancelled
		v.ProgressPercentage = math.Round(float64(done)/float64(total)*1000) / 10
	}

	v.EstimatedCompletion = estimate(b, v.Counts, now)
	return v
}

// estimate projects completion from the remaining items. Pending batches
// start from submission and add the queue wait of their priority.
func estimate(b Batch, c Counts, now time.Time) *time.Time {
	if !b.Status.Active() {
		return nil
	}

	remaining := c.Queued + c.Processing
	mult, ok := rackMultiplier[b.Priority]
	if !ok {
		mult = 1.0
	}
	work := time.Duration(float64(remaining) * float64(perRack) * mult)

	var at time.Time
	if b.Status == StatusPending {
		at = b.SubmittedAt.Add(queueWait[b.Priority] + work)
		if at.Before(now) {
			at = now.Add(work)
		}
	} else {
		at = now.Add(work)
	}
	return &at
}
