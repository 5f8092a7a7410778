// Package compliance evaluates an extracted chain hierarchy against a
// versioned policy. Violations are a result state, reported as issue codes
// and a score; they are never returned as errors.
package compliance

import (
	"errors"
	"math"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
)

// Issue codes.
const (
	IssueMissingChains       = "missing_chains"
	IssuePerformanceExceeded = "performance_exceeded"
	IssueHierarchyBroken     = "hierarchy_broken"
	IssueParseFailed         = "parse_failed"
	IssueDepthExceeded       = "depth_exceeded"
)

const (
	completenessWeight = 50.0
	performanceWeight  = 30.0
	hierarchyWeight    = 20.0
)

// Input is everything a verdict depends on.
type Input struct {
	Chains []chains.Chain
	// Expected maps chain list paths to entry counts, as produced by
	// chains.CountChainEntries on the raw tree.
	Expected   map[string]int
	DurationMS int64
}

// Report is the verdict for one run.
type Report struct {
	Compliant     bool     `json:"constitutional_compliant"`
	Issues        []string `json:"compliance_issues"`
	Score         float64  `json:"compliance_score"`
	PolicyVersion string   `json:"policy_version"`
}

// Validate is a pure function of its inputs.
func Validate(in Input, p Policy) Report {
	complete := !p.RequireCompleteness || Complete(in.Chains, in.Expected)
	intact := !p.RequireHierarchyIntegrity || HierarchyIntact(in.Chains)
	fast := p.PerformanceCeilingMS <= 0 || in.DurationMS <= p.PerformanceCeilingMS

	issues := []string{}
	score := 0.0

	if complete {
		score += completenessWeight
	} else {
		issues = append(issues, IssueMissingChains)
	}

	if !fast {
		issues = append(issues, IssuePerformanceExceeded)
	}
	score += performanceCredit(in.DurationMS, p.PerformanceCeilingMS)

	if intact {
		score += hierarchyWeight
	} else {
		issues = append(issues, IssueHierarchyBroken)
	}

	return Report{
		Compliant:     len(issues) == 0,
		Issues:        issues,
		Score:         round(score, 2),
		PolicyVersion: p.Version,
	}
}

// FailureReport is the verdict for a run whose document could not be read
// or extracted.
func FailureReport(err error, p Policy) Report {
	issue := IssueParseFailed
	if errors.Is(err, adg.ErrDepthExceeded) {
		issue = IssueDepthExceeded
	}
	return Report{
		Compliant:     false,
		Issues:        []string{issue},
		Score:         0,
		PolicyVersion: p.Version,
	}
}

// Complete reports whether every chain list holds exactly as many
// extracted chains as the raw tree has entries, and no chain came from a
// list the raw tree does not have.
func Complete(list []chains.Chain, expected map[string]int) bool {
	got := chains.CountByList(list)
	if len(got) != len(expected) {
		return false
	}
	for path, n := range expected {
		if got[path] != n {
			return false
		}
	}
	return true
}

// HierarchyIntact reports whether identifiers are unique, roots sit at
// depth 0 and every other chain sits one level below a parent in list.
// Strictly increasing depth along parent links rules out cycles.
func HierarchyIntact(list []chains.Chain) bool {
	depth := make(map[string]int, len(list))
	for _, c := range list {
		if c.Identifier == "" {
			return false
		}
		if _, dup := depth[c.Identifier]; dup {
			return false
		}
		depth[c.Identifier] = c.Depth
	}

	for _, c := range list {
		if c.ParentID == nil {
			if c.Depth != 0 {
				return false
			}
			continue
		}
		parent, ok := depth[*c.ParentID]
		if !ok || c.Depth != parent+1 {
			return false
		}
	}
	return true
}

// performanceCredit grants the full weight up to the ceiling, scales
// linearly down to zero at twice the ceiling, and nothing beyond.
func performanceCredit(durationMS, ceilingMS int64) float64 {
	if ceilingMS <= 0 || durationMS <= ceilingMS {
		return performanceWeight
	}
	if durationMS >= 2*ceilingMS {
		return 0
	}
	return performanceWeight * float64(2*ceilingMS-durationMS) / float64(ceilingMS)
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
