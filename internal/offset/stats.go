package offset

import "sort"

// OffsetStats summarizes the detected offsets across documents.
type OffsetStats struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Mode   int     `json:"mode"`
}

// Summary aggregates detection outcomes for reporting.
type Summary struct {
	TotalDocuments         int                `json:"total_documents"`
	ConfidenceDistribution map[Confidence]int `json:"confidence_distribution"`
	DocumentsWithOffset    int                `json:"documents_with_offset"`
	DocumentsNoOffset      int                `json:"documents_no_offset"`
	Offsets                *OffsetStats       `json:"offset_statistics,omitempty"`
}

// Summarize computes aggregate statistics over all mappings.
func Summarize(m Mappings) Summary {
	s := Summary{
		TotalDocuments: len(m),
		ConfidenceDistribution: map[Confidence]int{
			ConfidenceHigh:   0,
			ConfidenceMedium: 0,
			ConfidenceLow:    0,
			ConfidenceNone:   0,
		},
	}

	var offsets []int
	for _, dm := range m {
		s.ConfidenceDistribution[dm.Confidence]++
		if dm.Offset == nil || *dm.Offset == 0 {
			s.DocumentsNoOffset++
		} else {
			s.DocumentsWithOffset++
		}
		if dm.Offset != nil {
			offsets = append(offsets, *dm.Offset)
		}
	}

	if len(offsets) > 0 {
		s.Offsets = offsetStats(offsets)
	}
	return s
}

func offsetStats(offsets []int) *OffsetStats {
	sorted := make([]int, len(offsets))
	copy(sorted, offsets)
	sort.Ints(sorted)

	sum := 0
	for _, o := range sorted {
		sum += o
	}

	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = float64(sorted[n/2])
	} else {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}

	// Mode over insertion order, first encountered wins ties.
	counts := make(map[int]int, n)
	mode := offsets[0]
	for _, o := range offsets {
		counts[o]++
		if counts[o] > counts[mode] {
			mode = o
		}
	}

	return &OffsetStats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   float64(sum) / float64(n),
		Median: median,
		Mode:   mode,
	}
}
