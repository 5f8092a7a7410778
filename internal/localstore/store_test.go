package localstore_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/localstore"
	"github.com/JaimeStill/racksmith/internal/racktest"
	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

var pageConfig = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func open(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(":memory:", pageConfig)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func result(rackID uuid.UUID, name string) *analysis.Result {
	return &analysis.Result{
		ID:                  uuid.New(),
		RackID:              rackID,
		Status:              analysis.StatusSucceeded,
		TotalChains:         2,
		MaxNestingDepth:     2,
		TotalDevices:        1,
		DeviceTypeBreakdown: map[string]int{"Reverb": 1},
		DurationMS:          12,
		Compliant:           true,
		Score:               100,
		PolicyVersion:       compliance.DefaultVersion,
		RackType:            chains.AudioEffectRack,
		RackName:            name,
		FormatVersion:       "12.0",
		ProcessedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func chainSet() []chains.Chain {
	parent := "c0"
	return []chains.Chain{
		{Identifier: "c0", Name: "Wet", SourcePath: "/Ableton/GroupDevicePreset/BranchPresets/AudioEffectBranchPreset", Depth: 0, Position: 0, Kind: chains.KindNormal, IsEmpty: true},
		{
			Identifier:  "c0.d0.c0",
			Name:        "Verb",
			SourcePath:  "/Ableton/GroupDevicePreset/BranchPresets/AudioEffectBranchPreset/DevicePresets/GroupDevicePreset/BranchPresets/AudioEffectBranchPreset",
			ParentID:    &parent,
			Depth:       1,
			Position:    1,
			DeviceCount: 1,
			Kind:        chains.KindNormal,
			Devices:     []chains.Device{{Name: "Reverb", Type: "Reverb", StandardName: "Reverb", Enabled: true}},
		},
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racksmith.db")

	for i := range 2 {
		s, err := localstore.Open(path, pageConfig)
		if err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
	}
}

func TestSaveAndRead(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	rackID := uuid.New()

	saved, err := s.Save(ctx, result(rackID, "Parallel Space"), chainSet())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Current(ctx, rackID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.ID != saved.ID {
		t.Errorf("id: got %s, want %s", got.ID, saved.ID)
	}
	if got.RackName != "Parallel Space" || !got.Compliant || got.DeviceTypeBreakdown["Reverb"] != 1 {
		t.Errorf("result: got %+v", got)
	}
	if !got.ProcessedAt.Equal(saved.ProcessedAt) {
		t.Errorf("processed at: got %v, want %v", got.ProcessedAt, saved.ProcessedAt)
	}
	if got.Issues == nil || got.Warnings == nil {
		t.Error("json columns should decode to empty slices")
	}

	list, err := s.Chains(ctx, rackID)
	if err != nil {
		t.Fatalf("Chains: %v", err)
	}
	if len(list) != 2 || list[0].Identifier != "c0" || list[1].Identifier != "c0.d0.c0" {
		t.Fatalf("chains: got %+v", list)
	}
	if list[1].ParentID == nil || *list[1].ParentID != "c0" {
		t.Errorf("parent: got %v", list[1].ParentID)
	}
	if list[0].ParentID != nil {
		t.Errorf("top-level parent: got %v", *list[0].ParentID)
	}

	c, err := s.Chain(ctx, rackID, "c0.d0.c0")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(c.Devices) != 1 || c.Devices[0].StandardName != "Reverb" {
		t.Errorf("devices: got %+v", c.Devices)
	}
}

func TestSaveReplacesCurrent(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	rackID := uuid.New()

	first, err := s.Save(ctx, result(rackID, "First"), chainSet())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	msg := "parse failed"
	failed := result(rackID, "First")
	failed.Status = analysis.StatusFailed
	failed.Error = &msg

	second, err := s.Save(ctx, failed, nil)
	if err != nil {
		t.Fatalf("Save failed result: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert should keep the row id: got %s, want %s", second.ID, first.ID)
	}

	got, err := s.Current(ctx, rackID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.Status != analysis.StatusFailed || got.Error == nil || *got.Error != msg {
		t.Errorf("current: got %s %v", got.Status, got.Error)
	}

	list, err := s.Chains(ctx, rackID)
	if err != nil {
		t.Fatalf("Chains: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("a nil chain set should keep previous chains, got %d", len(list))
	}

	if _, err := s.Save(ctx, result(rackID, "First"), []chains.Chain{}); err != nil {
		t.Fatalf("Save empty set: %v", err)
	}
	list, err = s.Chains(ctx, rackID)
	if err != nil {
		t.Fatalf("Chains: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("an empty chain set should clear chains, got %d", len(list))
	}
}

func TestNotFound(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	if _, err := s.Current(ctx, uuid.New()); !errors.Is(err, analysis.ErrNotAnalyzed) {
		t.Errorf("Current: got %v, want ErrNotAnalyzed", err)
	}

	rackID := uuid.New()
	if _, err := s.Save(ctx, result(rackID, "x"), chainSet()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Chain(ctx, rackID, "c9"); !errors.Is(err, analysis.ErrChainNotFound) {
		t.Errorf("Chain: got %v, want ErrChainNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	names := []string{"Parallel Space", "Glue Bus", "Space Echo"}
	for i, name := range names {
		r := result(uuid.New(), name)
		r.ProcessedAt = r.ProcessedAt.Add(time.Duration(i) * time.Minute)
		if i == 1 {
			r.Compliant = false
		}
		if _, err := s.Save(ctx, r, nil); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	compliant := true
	tests := []struct {
		name    string
		page    pagination.PageRequest
		filters analysis.Filters
		want    []string
	}{
		{"all newest first", pagination.PageRequest{}, analysis.Filters{}, []string{"Space Echo", "Glue Bus", "Parallel Space"}},
		{"search ignores case", pagination.PageRequest{Search: ptr("space")}, analysis.Filters{}, []string{"Space Echo", "Parallel Space"}},
		{"compliant filter", pagination.PageRequest{}, analysis.Filters{Compliant: &compliant}, []string{"Space Echo", "Parallel Space"}},
		{"paged", pagination.PageRequest{Page: 2, PageSize: 2}, analysis.Filters{}, []string{"Parallel Space"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.List(ctx, tt.page, tt.filters)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []string
			for _, r := range page.Data {
				got = append(got, r.RackName)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestAnalyzeThroughStore(t *testing.T) {
	s := open(t)
	src := racktest.NewSource()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sys := analysis.New(analysis.Deps{
		Store:      s,
		Runtime:    &workflow.Runtime{Source: src, Logger: logger},
		Policies:   racktest.Policy(compliance.DefaultPolicy()),
		Logger:     logger,
		Pagination: pageConfig,
	})

	id := src.Put(racktest.Gzip(racktest.NestedRack))
	ctx := context.Background()

	if _, err := sys.Analyze(ctx, id, analysis.Options{}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	h, err := sys.Hierarchy(ctx, id, true)
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if h.TotalChains != 3 || len(h.Chains) != 2 {
		t.Errorf("hierarchy: got %d chains, %d roots", h.TotalChains, len(h.Chains))
	}

	verb, err := sys.Chain(ctx, id, "c1.d0.c0")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if verb.Name != "Verb" || verb.DeviceCount != 2 {
		t.Errorf("chain: got %s with %d devices", verb.Name, verb.DeviceCount)
	}
}

func ptr[T any](v T) *T { return &v }
