package batches

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

func (s *scheduler) Submit(ctx context.Context, p racks.Principal, cmd SubmitCommand) (*View, error) {
	ids, err := s.admit(ctx, p, &cmd)
	if err != nil {
		s.metrics.RecordBatchRejected()
		return nil, err
	}

	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	if err := s.checkActive(ctx, p); err != nil {
		s.metrics.RecordBatchRejected()
		return nil, err
	}

	if !s.reserve(len(ids)) {
		s.metrics.RecordBatchRejected()
		return nil, fmt.Errorf("%w: queue is full", ErrAdmission)
	}

	priority := cmd.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	b := &Batch{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Priority:    priority,
		Force:       cmd.Force,
		Notify:      cmd.Notify,
		Status:      StatusPending,
		SubmittedAt: s.now().UTC(),
		Items:       make([]Item, len(ids)),
	}
	for i, id := range ids {
		b.Items[i] = Item{RackID: id, Position: i, Status: ItemQueued}
	}

	// the aggregator owns b once sent
	snapshot := clone(b)

	reply := make(chan error, 1)
	if err := s.send(ctx, submitEvent{batch: b, reply: reply}); err != nil {
		s.release(len(ids))
		return nil, err
	}
	if err := <-reply; err != nil {
		s.release(len(ids))
		return nil, fmt.Errorf("create batch: %w", err)
	}

	s.metrics.RecordBatchSubmitted(string(priority))
	s.logger.Info(
		"batch submitted",
		"batch_id", b.ID,
		"user_id", p.UserID,
		"racks", len(ids),
		"priority", priority,
		"force", cmd.Force,
	)

	v := NewView(*snapshot, s.now())
	return &v, nil
}

// find loads a batch visible to p.
func (s *scheduler) find(ctx context.Context, p racks.Principal, id uuid.UUID) (*Batch, error) {
	b, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(b.UserID) {
		return nil, fmt.Errorf("%w: batch %s", racks.ErrForbidden, id)
	}
	return b, nil
}

func (s *scheduler) Status(ctx context.Context, p racks.Principal, id uuid.UUID) (*View, error) {
	b, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	v := NewView(*b, s.now())
	return &v, nil
}

func (s *scheduler) Results(ctx context.Context, p racks.Principal, id uuid.UUID, includeDetails bool) (*Results, error) {
	b, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if b.Status != StatusCompleted && b.Status != StatusFailed {
		return nil, fmt.Errorf("%w: batch is %s", ErrResultsUnavailable, b.Status)
	}

	r := &Results{
		BatchID: b.ID,
		Status:  b.Status,
		Summary: Summarize(b),
	}
	if includeDetails {
		r.Items = b.Items
	}
	return r, nil
}

func (s *scheduler) Cancel(ctx context.Context, p racks.Principal, id uuid.UUID) (*View, error) {
	b, err := s.find(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Active() {
		return nil, fmt.Errorf("%w: batch is %s", ErrInvalidStatus, b.Status)
	}

	reply := make(chan cancelReply, 1)
	if err := s.send(ctx, cancelEvent{batchID: id, reply: reply}); err != nil {
		return nil, err
	}

	r := <-reply
	if r.err != nil {
		return nil, r.err
	}

	v := NewView(*r.batch, s.now())
	return &v, nil
}

func (s *scheduler) History(
	ctx context.Context,
	p racks.Principal,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[View], error) {
	if !p.Admin {
		filters.UserID = &p.UserID
	}

	result, err := s.store.History(ctx, page, filters)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, len(result.Data))
	for i, b := range result.Data {
		views[i] = NewView(b, now)
	}

	out := pagination.NewPageResult(views, result.Total, result.Page, result.PageSize)
	return &out, nil
}
