// Package analysis implements the analysis orchestrator: it runs the
// analysis pipeline for a rack under a per-rack lock, persists the current
// result and chain hierarchy, and serves them back with derived ratings.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/compliance"
)

// Status is the outcome of an analysis run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is the current analysis of a rack. A rack has at most one.
type Result struct {
	ID                  uuid.UUID      `json:"id"`
	RackID              uuid.UUID      `json:"rack_id"`
	Status              Status         `json:"status"`
	TotalChains         int            `json:"total_chains_detected"`
	MaxNestingDepth     int            `json:"max_nesting_depth"`
	TotalDevices        int            `json:"total_devices"`
	DeviceTypeBreakdown map[string]int `json:"device_type_breakdown"`
	DurationMS          int64          `json:"duration_ms"`
	Compliant           bool           `json:"constitutional_compliant"`
	Issues              []string       `json:"compliance_issues"`
	Score               float64        `json:"compliance_score"`
	PolicyVersion       string         `json:"policy_version"`
	Warnings            []string       `json:"warnings"`
	Error               *string        `json:"error"`
	RackType            string         `json:"rack_type"`
	RackName            string         `json:"rack_name"`
	FormatVersion       string         `json:"format_version"`
	ProcessedAt         time.Time      `json:"processed_at"`
}

// Summary is a result with the ratings derived from it on read.
type Summary struct {
	Result
	compliance.Ratings
}

// Summarize derives the ratings of r.
func Summarize(r Result) Summary {
	return Summary{
		Result:  r,
		Ratings: compliance.Rate(r.DurationMS, r.MaxNestingDepth, r.TotalChains, r.TotalDevices),
	}
}

// Options tunes Analyze.
type Options struct {
	// Force re-runs the analysis even when a current result exists.
	Force bool `json:"force"`
}

// ReanalyzeOptions tunes Reanalyze. Overrides apply to this run only.
type ReanalyzeOptions struct {
	PerformanceCeilingMS *int64 `json:"performance_ceiling_ms,omitempty"`
}

// Hierarchy is the chain tree of a rack's current analysis.
type Hierarchy struct {
	RackID          uuid.UUID      `json:"rack_id"`
	TotalChains     int            `json:"total_chains"`
	MaxNestingDepth int            `json:"max_nesting_depth"`
	Chains          []*chains.Node `json:"chains"`
}
