package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
)

// state carries values between stages of one run.
type state struct {
	rackID uuid.UUID
	policy compliance.Policy

	data       []byte
	tree       *adg.Tree
	extraction *chains.Extraction
	expected   map[string]int
	report     compliance.Report

	started  time.Time
	duration time.Duration
}

func loadStage(ctx context.Context, rt *Runtime, s *state) error {
	rc, err := rt.Source.Open(ctx, s.rackID)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	s.data = data
	return nil
}

// readStage starts the measured window; it closes after extraction.
func readStage(_ context.Context, rt *Runtime, s *state) error {
	s.started = time.Now()

	tree, err := adg.Read(s.data, rt.Limits)
	s.data = nil
	if err != nil {
		return err
	}
	s.tree = tree
	return nil
}

func extractStage(_ context.Context, rt *Runtime, s *state) error {
	x, err := chains.Extract(s.tree, rt.Chains)
	if err != nil {
		return err
	}
	s.duration = time.Since(s.started)

	s.extraction = x
	s.expected = chains.CountChainEntries(s.tree)
	s.tree = nil
	return nil
}

func validateStage(_ context.Context, _ *Runtime, s *state) error {
	s.report = compliance.Validate(compliance.Input{
		Chains:     s.extraction.Chains,
		Expected:   s.expected,
		DurationMS: s.duration.Milliseconds(),
	}, s.policy)
	return nil
}

func (s *state) result() *Result {
	return &Result{
		RackID:      s.rackID,
		Extraction:  s.extraction,
		Report:      s.report,
		Duration:    s.duration,
		CompletedAt: time.Now(),
	}
}

func (s *state) failed(err error) *Result {
	if s.duration == 0 && !s.started.IsZero() {
		s.duration = time.Since(s.started)
	}
	return &Result{
		RackID:      s.rackID,
		Report:      compliance.FailureReport(err, s.policy),
		Duration:    s.duration,
		Failure:     err,
		CompletedAt: time.Now(),
	}
}
