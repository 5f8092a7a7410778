package batches

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

const commonErrorLimit = 5

// ErrorCount is one distinct item error with its frequency.
type ErrorCount struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// Summary aggregates the item outcomes of a finished batch. Duration and
// chain totals cover successful items only.
type Summary struct {
	Total             int          `json:"total"`
	Successful        int          `json:"successful"`
	Failed            int          `json:"failed"`
	Cancelled         int          `json:"cancelled"`
	Compliant         int          `json:"constitutional_compliant"`
	TotalChains       int          `json:"total_chains_detected"`
	AverageDurationMS float64      `json:"average_duration_ms"`
	CommonErrors      []ErrorCount `json:"common_errors"`
}

// Results is the report of a finished batch.
type Results struct {
	BatchID uuid.UUID `json:"batch_id"`
	Status  Status    `json:"status"`
	Summary Summary   `json:"summary"`
	Items   []Item    `json:"items,omitempty"`
}

// Summarize aggregates the items of b.
func Summarize(b *Batch) Summary {
	s := Summary{
		Total:        len(b.Items),
		CommonErrors: []ErrorCount{},
	}

	var durations int64
	errs := map[string]int{}

	for _, it := range b.Items {
		switch it.Status {
		case ItemCompleted:
			s.Successful++
			if it.Compliant != nil && *it.Compliant {
				s.Compliant++
			}
			if it.ChainsDetected != nil {
				s.TotalChains += *it.ChainsDetected
			}
			if it.DurationMS != nil {
				durations += *it.DurationMS
			}
		case ItemFailed:
			s.Failed++
			if it.Error != nil {
				errs[*it.Error]++
			}
		case ItemCancelled:
			s.Cancelled++
		}
	}

	if s.Successful > 0 {
		s.AverageDurationMS = float64(durations) / float64(s.Successful)
	}

	for msg, n := range errs {
		s.CommonErrors = append(s.CommonErrors, ErrorCount{Error: msg, Count: n})
	}
	slices.SortFunc(s.CommonErrors, func(a, b ErrorCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Error, b.Error)
	})
	if len(s.CommonErrors) > commonErrorLimit {
		s.CommonErrors = s.CommonErrors[:commonErrorLimit]
	}

	return s
}
