package compliance

// Performance ratings.
const (
	RatingExcellent  = "excellent"
	RatingGood       = "good"
	RatingAcceptable = "acceptable"
	RatingSlow       = "slow"
)

// Complexity ratings.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// PerformanceRating buckets an analysis duration.
func PerformanceRating(durationMS int64) string {
	switch {
	case durationMS <= 1000:
		return RatingExcellent
	case durationMS <= 2500:
		return RatingGood
	case durationMS <= 5000:
		return RatingAcceptable
	default:
		return RatingSlow
	}
}

// ComplexityRating rates a hierarchy by nesting levels and by the ratio of
// chains to devices. A rack without devices has a ratio of zero.
func ComplexityRating(maxDepth, totalChains, totalDevices int) string {
	ratio := 0.0
	if totalDevices > 0 {
		ratio = float64(totalChains) / float64(totalDevices)
	}

	switch {
	case maxDepth >= 4 || ratio > 0.5:
		return ComplexityHigh
	case maxDepth >= 2 || ratio > 0.2:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// EfficiencyScore is devices analyzed per millisecond, rounded to four
// places. A zero duration scores zero.
func EfficiencyScore(totalDevices int, durationMS int64) float64 {
	if durationMS <= 0 {
		return 0
	}
	return round(float64(totalDevices)/float64(durationMS), 4)
}

// Ratings are derived from a stored result on read.
type Ratings struct {
	Performance string  `json:"performance_rating"`
	Complexity  string  `json:"complexity_rating"`
	Efficiency  float64 `json:"efficiency_score"`
}

// Rate derives every rating at once.
func Rate(durationMS int64, maxDepth, totalChains, totalDevices int) Ratings {
	return Ratings{
		Performance: PerformanceRating(durationMS),
		Complexity:  ComplexityRating(maxDepth, totalChains, totalDevices),
		Efficiency:  EfficiencyScore(totalDevices, durationMS),
	}
}
