package batches

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/pkg/lifecycle"
	"github.com/JaimeStill/racksmith/pkg/metrics"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

const (
	staleReason     = "interrupted by service restart"
	maxRetryBackoff = 10 * time.Second
)

// Limits bounds the scheduler. RetryBackoff is the first delay before an
// item whose rack is busy is queued again; it doubles per attempt.
type Limits struct {
	Workers          int
	QueueCapacity    int
	MaxBatchSize     int
	ActiveLimit      int
	AdminActiveLimit int
	RetryBackoff     time.Duration
}

// Deps bundles the collaborators of the scheduler. A nil Notifier logs
// events instead.
type Deps struct {
	Store      Store
	Analyzer   Analyzer
	Authorizer Authorizer
	Notifier   Notifier
	Metrics    *metrics.Registry
	Logger     *slog.Logger
	Pagination pagination.Config
	Limits     Limits
}

type task struct {
	batchID  uuid.UUID
	rackID   uuid.UUID
	priority Priority
	force    bool
	attempt  int
}

// outcome is the result of one execution. retry marks a rack that was
// busy; the item goes back to the queue instead of finishing.
type outcome struct {
	retry      bool
	status     ItemStatus
	err        *string
	compliant  *bool
	chains     *int
	durationMS *int64
}

// tracked is an active batch held by the aggregator.
type tracked struct {
	batch     *Batch
	inflight  int
	cancelled bool
}

type submitEvent struct {
	batch *Batch
	reply chan error
}

type startEvent struct {
	task  task
	reply chan bool
}

type doneEvent struct {
	task    task
	outcome outcome
}

type retryEvent struct {
	task task
}

type cancelReply struct {
	batch *Batch
	err   error
}

type cancelEvent struct {
	batchID uuid.UUID
	reply   chan cancelReply
}

type scheduler struct {
	store      Store
	analyzer   Analyzer
	auth       Authorizer
	notifier   Notifier
	metrics    *metrics.Registry
	logger     *slog.Logger
	pagination pagination.Config
	limits     Limits

	queues  map[Priority]chan task
	events  chan any
	stopped chan struct{}

	mu       sync.Mutex
	reserved int

	// admitMu serializes the active-batch check with batch creation.
	admitMu sync.Mutex
	retries sync.WaitGroup

	now func() time.Time
}

// New creates the batch scheduler implementing the System interface.
// Workers do not run until Start or Run is called.
func New(deps Deps) System {
	logger := deps.Logger.With("system", "batches")

	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	limits := deps.Limits
	if limits.Workers < 1 {
		limits.Workers = 1
	}
	if limits.MaxBatchSize < 1 {
		limits.MaxBatchSize = 10
	}
	if limits.QueueCapacity < limits.MaxBatchSize {
		limits.QueueCapacity = limits.MaxBatchSize
	}
	if limits.RetryBackoff <= 0 {
		limits.RetryBackoff = 500 * time.Millisecond
	}

	queues := make(map[Priority]chan task, len(Priorities))
	for _, p := range Priorities {
		queues[p] = make(chan task, limits.QueueCapacity)
	}

	return &scheduler{
		store:      deps.Store,
		analyzer:   deps.Analyzer,
		auth:       deps.Authorizer,
		notifier:   notifier,
		metrics:    deps.Metrics,
		logger:     logger,
		pagination: deps.Pagination,
		limits:     limits,
		queues:     queues,
		events:     make(chan any),
		stopped:    make(chan struct{}),
		now:        time.Now,
	}
}

func (s *scheduler) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *scheduler) Start(lc *lifecycle.Coordinator) error {
	done := make(chan struct{})

	lc.OnStartup(func() {
		ctx := lc.Context()

		n, err := s.store.FailStale(ctx, staleReason)
		if err != nil {
			s.logger.Error("failed to close stale batches", "error", err)
		} else if n > 0 {
			s.logger.Warn("stale batches marked failed", "count", n)
		}

		go func() {
			defer close(done)
			if err := s.Run(ctx); err != nil {
				s.logger.Error("scheduler stopped", "error", err)
			}
		}()
		s.logger.Info("scheduler started", "workers", s.limits.Workers, "queue_capacity", s.limits.QueueCapacity)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		select {
		case <-done:
		case <-time.After(time.Minute):
			s.logger.Warn("scheduler did not stop in time")
			return
		}
		s.logger.Info("scheduler stopped")
	})

	return nil
}

func (s *scheduler) Run(ctx context.Context) error {
	defer close(s.stopped)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.aggregate(gctx)
		return nil
	})

	for range s.limits.Workers {
		g.Go(func() error {
			s.work(gctx)
			return nil
		})
	}

	err := g.Wait()
	s.retries.Wait()
	return err
}

// send delivers an event to the aggregator.
func (s *scheduler) send(ctx context.Context, e any) error {
	select {
	case s.events <- e:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scheduler) reserve(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserved+n > s.limits.QueueCapacity {
		return false
	}
	s.reserved += n
	return true
}

func (s *scheduler) release(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved -= n
}

func (s *scheduler) work(ctx context.Context) {
	for {
		t, ok := s.next(ctx)
		if !ok {
			return
		}
		s.release(1)
		s.metrics.SetQueueDepth(string(t.priority), len(s.queues[t.priority]))

		reply := make(chan bool, 1)
		if err := s.send(ctx, startEvent{task: t, reply: reply}); err != nil {
			return
		}
		if !<-reply {
			continue
		}

		s.metrics.WorkerStarted()
		out := s.execute(ctx, t)
		s.metrics.WorkerFinished()

		var e any = doneEvent{task: t, outcome: out}
		if out.retry {
			e = retryEvent{task: t}
		}
		if err := s.send(ctx, e); err != nil {
			return
		}
	}
}

// next takes the next task in priority order.
func (s *scheduler) next(ctx context.Context) (task, bool) {
	for _, p := range Priorities {
		select {
		case t := <-s.queues[p]:
			return t, true
		default:
		}
	}

	select {
	case t := <-s.queues[PriorityHigh]:
		return t, true
	case t := <-s.queues[PriorityNormal]:
		return t, true
	case t := <-s.queues[PriorityLow]:
		return t, true
	case <-ctx.Done():
		return task{}, false
	}
}

func (s *scheduler) execute(ctx context.Context, t task) outcome {
	summary, err := s.analyzer.Analyze(ctx, t.rackID, analysis.Options{Force: t.force})
	if errors.Is(err, analysis.ErrConcurrencyConflict) {
		return outcome{retry: true}
	}
	if err != nil {
		msg := err.Error()
		return outcome{status: ItemFailed, err: &msg}
	}

	if summary.Status == analysis.StatusFailed {
		msg := "analysis failed"
		if summary.Error != nil {
			msg = *summary.Error
		}
		duration := summary.DurationMS
		return outcome{status: ItemFailed, err: &msg, durationMS: &duration}
	}

	compliant := summary.Compliant
	chains := summary.TotalChains
	duration := summary.DurationMS
	return outcome{
		status:     ItemCompleted,
		compliant:  &compliant,
		chains:     &chains,
		durationMS: &duration,
	}
}

// aggregate owns every active batch. Workers and callers reach it only
// through events.
func (s *scheduler) aggregate(ctx context.Context) {
	active := make(map[uuid.UUID]*tracked)

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			switch e := e.(type) {
			case submitEvent:
				e.reply <- s.onSubmit(ctx, active, e.batch)
			case startEvent:
				e.reply <- s.onStart(ctx, active, e.task)
			case doneEvent:
				s.onDone(ctx, active, e.task, e.outcome)
			case retryEvent:
				s.onRetry(ctx, active, e.task)
			case cancelEvent:
				e.reply <- s.onCancel(ctx, active, e.batchID)
			}
		}
	}
}

// onSubmit persists b and queues its items. Creating the batch here means
// no caller can find it in the store before the aggregator tracks it.
func (s *scheduler) onSubmit(ctx context.Context, active map[uuid.UUID]*tracked, b *Batch) error {
	if err := s.store.Create(ctx, b); err != nil {
		return err
	}
	active[b.ID] = &tracked{batch: b}

	q := s.queues[b.Priority]
	for _, it := range b.Items {
		q <- task{
			batchID:  b.ID,
			rackID:   it.RackID,
			priority: b.Priority,
			force:    b.Force,
		}
	}
	s.metrics.SetQueueDepth(string(b.Priority), len(q))
	return nil
}

func (s *scheduler) onStart(ctx context.Context, active map[uuid.UUID]*tracked, t task) bool {
	tb, ok := active[t.batchID]
	if !ok || tb.cancelled {
		return false
	}

	it, ok := tb.batch.Item(t.rackID)
	if !ok || it.Status != ItemQueued {
		return false
	}

	now := s.now().UTC()
	it.Status = ItemProcessing
	it.StartedAt = &now
	tb.inflight++
	s.saveItem(ctx, tb.batch, it)

	if tb.batch.Status == StatusPending {
		tb.batch.Status = StatusProcessing
		tb.batch.StartedAt = &now
		s.saveStatus(ctx, tb.batch)
	}
	return true
}

func (s *scheduler) onDone(ctx context.Context, active map[uuid.UUID]*tracked, t task, out outcome) {
	tb, ok := active[t.batchID]
	if !ok {
		return
	}

	it, ok := tb.batch.Item(t.rackID)
	if !ok {
		return
	}

	now := s.now().UTC()
	it.Status = out.status
	it.Error = out.err
	it.Compliant = out.compliant
	it.ChainsDetected = out.chains
	it.DurationMS = out.durationMS
	it.CompletedAt = &now
	tb.inflight--
	s.saveItem(ctx, tb.batch, it)
	s.metrics.RecordBatchItem(string(out.status))

	s.logger.Debug(
		"batch item finished",
		"batch_id", t.batchID,
		"rack_id", t.rackID,
		"status", out.status,
	)

	s.settle(ctx, active, tb)
}

// onRetry returns a busy item to the queue after a backoff. The batch
// stays processing; a cancel that arrives meanwhile cancels the item.
func (s *scheduler) onRetry(ctx context.Context, active map[uuid.UUID]*tracked, t task) {
	tb, ok := active[t.batchID]
	if !ok {
		return
	}

	it, ok := tb.batch.Item(t.rackID)
	if !ok {
		return
	}

	tb.inflight--
	it.StartedAt = nil

	if tb.cancelled {
		now := s.now().UTC()
		it.Status = ItemCancelled
		it.CompletedAt = &now
		s.saveItem(ctx, tb.batch, it)
		s.metrics.RecordBatchItem(string(ItemCancelled))
		s.settle(ctx, active, tb)
		return
	}

	it.Status = ItemQueued
	s.saveItem(ctx, tb.batch, it)

	t.attempt++
	delay := s.backoff(t.attempt)
	s.logger.Debug(
		"rack busy, item requeued",
		"batch_id", t.batchID,
		"rack_id", t.rackID,
		"attempt", t.attempt,
		"delay", delay,
	)

	s.retries.Go(func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		// a full queue defers the retry rather than blocking the aggregator
		for {
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
			if s.reserve(1) {
				break
			}
			timer.Reset(delay)
		}

		select {
		case s.queues[t.priority] <- t:
			s.metrics.SetQueueDepth(string(t.priority), len(s.queues[t.priority]))
		case <-ctx.Done():
		}
	})
}

// backoff doubles RetryBackoff per attempt up to maxRetryBackoff.
func (s *scheduler) backoff(attempt int) time.Duration {
	d := s.limits.RetryBackoff
	for range min(attempt-1, 16) {
		d *= 2
		if d >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return d
}

func (s *scheduler) onCancel(ctx context.Context, active map[uuid.UUID]*tracked, id uuid.UUID) cancelReply {
	tb, ok := active[id]
	if !ok || tb.cancelled {
		return cancelReply{err: ErrInvalidStatus}
	}

	tb.cancelled = true
	now := s.now().UTC()
	for i := range tb.batch.Items {
		it := &tb.batch.Items[i]
		if it.Status != ItemQueued {
			continue
		}
		it.Status = ItemCancelled
		it.CompletedAt = &now
		s.saveItem(ctx, tb.batch, it)
		s.metrics.RecordBatchItem(string(ItemCancelled))
	}

	s.logger.Info("batch cancelled", "batch_id", id, "in_flight", tb.inflight)

	s.settle(ctx, active, tb)
	return cancelReply{batch: clone(tb.batch)}
}

// settle finishes a batch once every item is terminal.
func (s *scheduler) settle(ctx context.Context, active map[uuid.UUID]*tracked, tb *tracked) {
	if tb.inflight > 0 {
		return
	}

	c := tb.batch.Count()
	if c.Queued > 0 || c.Processing > 0 {
		return
	}

	switch {
	case tb.cancelled:
		tb.batch.Status = StatusCancelled
	case c.Completed > 0:
		tb.batch.Status = StatusCompleted
	default:
		tb.batch.Status = StatusFailed
	}

	now := s.now().UTC()
	tb.batch.CompletedAt = &now
	s.saveStatus(ctx, tb.batch)
	delete(active, tb.batch.ID)

	s.metrics.RecordBatchFinished(string(tb.batch.Status))
	s.logger.Info(
		"batch finished",
		"batch_id", tb.batch.ID,
		"status", tb.batch.Status,
		"completed", c.Completed,
		"failed", c.Failed,
		"cancelled", c.Cancelled,
	)

	if tb.batch.Notify {
		s.notify(ctx, tb.batch)
	}
}

func (s *scheduler) notify(ctx context.Context, b *Batch) {
	e := Event{
		Type:        EventBatchFinished,
		BatchID:     b.ID,
		UserID:      b.UserID,
		Status:      b.Status,
		Summary:     Summarize(b),
		CompletedAt: *b.CompletedAt,
	}

	go func() {
		if err := s.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
			s.logger.Warn("batch notification failed", "batch_id", e.BatchID, "error", err)
		}
	}()
}

func (s *scheduler) saveItem(ctx context.Context, b *Batch, it *Item) {
	if err := s.store.SaveItem(ctx, b.ID, it); err != nil {
		s.logger.Error("failed to save batch item", "batch_id", b.ID, "rack_id", it.RackID, "error", err)
	}
}

func (s *scheduler) saveStatus(ctx context.Context, b *Batch) {
	if err := s.store.SaveStatus(ctx, b); err != nil {
		s.logger.Error("failed to save batch status", "batch_id", b.ID, "status", b.Status, "error", err)
	}
}

func clone(b *Batch) *Batch {
	c := *b
	c.Items = slices.Clone(b.Items)
	return &c
}
