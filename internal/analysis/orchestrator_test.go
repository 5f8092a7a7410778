package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/racktest"
	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/locks"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

type fixture struct {
	src   *racktest.Source
	store *racktest.Store
	locks *locks.Table[uuid.UUID]
	sys   analysis.System
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture() *fixture {
	f := &fixture{
		src:   racktest.NewSource(),
		store: racktest.NewStore(),
		locks: locks.New[uuid.UUID](time.Minute),
	}
	f.sys = analysis.New(analysis.Deps{
		Store:      f.store,
		Runtime:    &workflow.Runtime{Source: f.src, Logger: discard()},
		Policies:   racktest.Policy(compliance.DefaultPolicy()),
		Locks:      f.locks,
		Logger:     discard(),
		Pagination: pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	})
	return f
}

func TestAnalyzeNestedRack(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.NestedRack))

	s, err := f.sys.Analyze(context.Background(), id, analysis.Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if s.Status != analysis.StatusSucceeded {
		t.Errorf("status: got %s", s.Status)
	}
	if s.TotalChains != 3 {
		t.Errorf("total chains: got %d, want 3", s.TotalChains)
	}
	if s.MaxNestingDepth != 2 {
		t.Errorf("max nesting depth: got %d, want 2", s.MaxNestingDepth)
	}
	if s.TotalDevices != 3 {
		t.Errorf("total devices: got %d, want 3", s.TotalDevices)
	}
	if s.DeviceTypeBreakdown["Reverb"] != 1 || s.DeviceTypeBreakdown["Eq8"] != 1 {
		t.Errorf("breakdown: got %v", s.DeviceTypeBreakdown)
	}
	if !s.Compliant || s.Score != 100 {
		t.Errorf("compliance: got %v/%v %v", s.Compliant, s.Score, s.Issues)
	}
	if s.PolicyVersion != compliance.DefaultVersion {
		t.Errorf("policy version: got %q", s.PolicyVersion)
	}
	if s.RackName != "Parallel Space" {
		t.Errorf("rack name: got %q", s.RackName)
	}
	if s.Performance == "" || s.Complexity == "" {
		t.Errorf("ratings not derived: %+v", s.Ratings)
	}
	if s.Error != nil {
		t.Errorf("error: got %q", *s.Error)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.NestedRack))
	ctx := context.Background()

	first, err := f.sys.Analyze(ctx, id, analysis.Options{})
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	second, err := f.sys.Analyze(ctx, id, analysis.Options{})
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("second result differs:\n%s\n%s", a, b)
	}
	if f.store.Saves != 1 {
		t.Errorf("saves: got %d, want 1", f.store.Saves)
	}

	if _, err := f.sys.Analyze(ctx, id, analysis.Options{Force: true}); err != nil {
		t.Fatalf("forced Analyze: %v", err)
	}
	if f.store.Saves != 2 {
		t.Errorf("saves after force: got %d, want 2", f.store.Saves)
	}

	list, _ := f.store.Chains(ctx, id)
	if len(list) != 3 {
		t.Errorf("chains after force: got %d, want 3", len(list))
	}
}

func TestAnalyzeConcurrencyConflict(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.FlatRack))
	gate := make(chan struct{})
	f.src.Gate = gate

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.sys.Analyze(context.Background(), id, analysis.Options{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !f.locks.Held(id) {
		if time.Now().After(deadline) {
			t.Fatal("first analysis never took the lock")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := f.sys.Reanalyze(context.Background(), id, analysis.ReanalyzeOptions{})
	if !errors.Is(err, analysis.ErrConcurrencyConflict) {
		t.Errorf("concurrent Reanalyze: got %v, want ErrConcurrencyConflict", err)
	}

	close(gate)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first Analyze: %v", firstErr)
	}
	if f.locks.Held(id) {
		t.Error("lock still held after run")
	}
	if f.store.Saves != 1 {
		t.Errorf("saves: got %d, want 1", f.store.Saves)
	}
}

func TestReanalyzeParseFailureKeepsChains(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.NestedRack))
	ctx := context.Background()

	if _, err := f.sys.Analyze(ctx, id, analysis.Options{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	f.src.Set(id, racktest.Corrupt)

	s, err := f.sys.Reanalyze(ctx, id, analysis.ReanalyzeOptions{})
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}

	if s.Status != analysis.StatusFailed {
		t.Errorf("status: got %s", s.Status)
	}
	if s.Compliant || s.Score != 0 {
		t.Errorf("failed run should not comply: %v/%v", s.Compliant, s.Score)
	}
	if len(s.Issues) != 1 || s.Issues[0] != compliance.IssueParseFailed {
		t.Errorf("issues: got %v", s.Issues)
	}
	if s.Error == nil || *s.Error == "" {
		t.Error("error message missing")
	}

	tree, err := f.sys.Hierarchy(ctx, id, false)
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if tree.TotalChains != 3 {
		t.Errorf("chains after failure: got %d, want 3", tree.TotalChains)
	}
}

func TestAnalyzeMissingRack(t *testing.T) {
	f := newFixture()

	_, err := f.sys.Analyze(context.Background(), uuid.New(), analysis.Options{})
	if !errors.Is(err, analysis.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if f.store.Saves != 0 {
		t.Errorf("missing rack persisted a result")
	}
}

func TestReanalyzeOverrides(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.FlatRack))
	ctx := context.Background()

	ceiling := int64(60_000)
	s, err := f.sys.Reanalyze(ctx, id, analysis.ReanalyzeOptions{PerformanceCeilingMS: &ceiling})
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if s.PolicyVersion != compliance.DefaultVersion {
		t.Errorf("policy version: got %q", s.PolicyVersion)
	}

	invalid := int64(0)
	_, err = f.sys.Reanalyze(ctx, id, analysis.ReanalyzeOptions{PerformanceCeilingMS: &invalid})
	if !errors.Is(err, analysis.ErrInvalidRequest) {
		t.Errorf("zero ceiling: got %v, want ErrInvalidRequest", err)
	}
}

func TestHierarchy(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.NestedRack))
	ctx := context.Background()

	if _, err := f.sys.Hierarchy(ctx, id, false); !errors.Is(err, analysis.ErrNotAnalyzed) {
		t.Fatalf("before analysis: got %v, want ErrNotAnalyzed", err)
	}

	if _, err := f.sys.Analyze(ctx, id, analysis.Options{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	tests := []struct {
		name    string
		devices bool
	}{
		{"without devices", false},
		{"with devices", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := f.sys.Hierarchy(ctx, id, tt.devices)
			if err != nil {
				t.Fatalf("Hierarchy: %v", err)
			}

			if tree.MaxNestingDepth != 2 {
				t.Errorf("max depth: got %d", tree.MaxNestingDepth)
			}
			if len(tree.Chains) != 2 {
				t.Fatalf("roots: got %d, want 2", len(tree.Chains))
			}

			wet := tree.Chains[1]
			if wet.Name != "Wet" || len(wet.Children) != 1 {
				t.Fatalf("Wet: got %q with %d children", wet.Name, len(wet.Children))
			}

			verb := wet.Children[0]
			if got := len(verb.Devices); tt.devices && got != 2 || !tt.devices && got != 0 {
				t.Errorf("Verb devices: got %d", got)
			}
		})
	}
}

func TestChain(t *testing.T) {
	f := newFixture()
	id := f.src.Put(racktest.Gzip(racktest.NestedRack))
	ctx := context.Background()

	if _, err := f.sys.Analyze(ctx, id, analysis.Options{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	c, err := f.sys.Chain(ctx, id, "c1.d0.c0")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if c.Name != "Verb" || c.DeviceCount != 2 || c.ParentID == nil || *c.ParentID != "c1" {
		t.Errorf("chain: got %+v", c)
	}

	if _, err := f.sys.Chain(ctx, id, "c9"); !errors.Is(err, analysis.ErrChainNotFound) {
		t.Errorf("unknown chain: got %v, want ErrChainNotFound", err)
	}
}

func TestList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	good := f.src.Put(racktest.Gzip(racktest.FlatRack))
	bad := f.src.Put(racktest.Corrupt)

	for _, id := range []uuid.UUID{good, bad} {
		if _, err := f.sys.Analyze(ctx, id, analysis.Options{}); err != nil {
			t.Fatalf("Analyze %s: %v", id, err)
		}
	}

	failed := string(analysis.StatusFailed)
	page, err := f.sys.List(ctx, pagination.PageRequest{}, analysis.Filters{Status: &failed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if page.Total != 1 || page.Data[0].RackID != bad {
		t.Fatalf("failed filter: got %+v", page.Data)
	}
	if page.Data[0].Performance == "" {
		t.Error("list entries should carry ratings")
	}
}
