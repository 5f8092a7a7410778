package compliance_test

import (
	"testing"

	"github.com/JaimeStill/racksmith/pkg/compliance"
)

func TestPerformanceRating(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, compliance.RatingExcellent},
		{1000, compliance.RatingExcellent},
		{1001, compliance.RatingGood},
		{2500, compliance.RatingGood},
		{5000, compliance.RatingAcceptable},
		{5001, compliance.RatingSlow},
	}

	for _, tt := range tests {
		if got := compliance.PerformanceRating(tt.ms); got != tt.want {
			t.Errorf("PerformanceRating(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestComplexityRating(t *testing.T) {
	tests := []struct {
		name                   string
		depth, chains, devices int
		want                   string
	}{
		{"flat", 1, 2, 20, compliance.ComplexityLow},
		{"nested", 2, 3, 30, compliance.ComplexityMedium},
		{"chain heavy", 1, 5, 20, compliance.ComplexityMedium},
		{"deep", 4, 4, 40, compliance.ComplexityHigh},
		{"mostly chains", 1, 6, 10, compliance.ComplexityHigh},
		{"no devices", 1, 3, 0, compliance.ComplexityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compliance.ComplexityRating(tt.depth, tt.chains, tt.devices); got != tt.want {
				t.Errorf("ComplexityRating = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEfficiencyScore(t *testing.T) {
	if got := compliance.EfficiencyScore(3, 0); got != 0 {
		t.Errorf("zero duration = %v", got)
	}
	if got := compliance.EfficiencyScore(3, 120); got != 0.025 {
		t.Errorf("EfficiencyScore(3, 120) = %v", got)
	}
	if got := compliance.EfficiencyScore(1, 3); got != 0.3333 {
		t.Errorf("EfficiencyScore(1, 3) = %v", got)
	}

	r := compliance.Rate(120, 2, 3, 3)
	if r.Performance != compliance.RatingExcellent || r.Complexity != compliance.ComplexityHigh {
		t.Errorf("Rate = %+v", r)
	}
}
