// Package offset turns per-page label observations into a consensus page
// offset with a calibrated confidence tier, and builds the persistable
// per-document mapping records.
package offset

import "fmt"

// Confidence tiers for a consensus result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
	ConfidenceNone   Confidence = "NONE"
)

// Sample is one probe of a document: a physical page and the label the
// recognizer read off it, if any. The offset is fixed at construction.
type Sample struct {
	PhysicalPage  int
	DetectedLabel *int
	offset        *int
}

// NewSample records a probe. detectedLabel is nil when recognition failed.
func NewSample(physicalPage int, detectedLabel *int) Sample {
	s := Sample{PhysicalPage: physicalPage, DetectedLabel: detectedLabel}
	if detectedLabel != nil {
		off := physicalPage - *detectedLabel
		s.offset = &off
	}
	return s
}

// Offset returns physical page minus detected label, or nil when no label
// was detected.
func (s Sample) Offset() *int { return s.offset }

func (s Sample) String() string {
	if s.offset != nil {
		return fmt.Sprintf("Sample(PDF:%d, Label:%d, Offset:%d)", s.PhysicalPage, *s.DetectedLabel, *s.offset)
	}
	return fmt.Sprintf("Sample(PDF:%d, Label:None, Offset:None)", s.PhysicalPage)
}

// Evidence is the per-sample detail attached to a result, in original sample
// order.
type Evidence struct {
	PDFPage             int  `json:"pdf_page"`
	DetectedLabel       *int `json:"detected_label"`
	Offset              *int `json:"offset"`
	AgreesWithConsensus bool `json:"agrees_with_consensus"`
}

// Result is the consensus outcome for one document's sample sequence.
type Result struct {
	Offset             *int
	Confidence         Confidence
	SamplesProcessed   int
	SamplesValid       int
	SamplesAgreed      int
	AgreementRatio     float64
	AllOffsets         []int
	OffsetDistribution map[int]int
	Evidence           []Evidence
	Warning            string
	Message            string
}

// Consensus computes the most frequent offset among valid samples and tiers
// confidence by the agreement ratio: 1.0 is HIGH, >= 0.66 is MEDIUM, below is
// LOW; no valid samples at all is NONE. On a tie between offsets the one
// first encountered in sample order wins, which keeps the result
// deterministic for a fixed sample sequence.
func Consensus(samples []Sample) Result {
	var valid []Sample
	for _, s := range samples {
		if s.Offset() != nil {
			valid = append(valid, s)
		}
	}

	if len(valid) == 0 {
		return Result{
			Confidence:       ConfidenceNone,
			SamplesProcessed: len(samples),
			AllOffsets:       []int{},
			Evidence:         buildEvidence(samples, nil),
			Message:          "No labeled page numbers detected. Document may use PDF page numbers directly (offset = 0).",
		}
	}

	offsets := make([]int, 0, len(valid))
	counts := make(map[int]int, len(valid))
	var order []int // distinct offsets in first-encounter order
	for _, s := range valid {
		o := *s.Offset()
		offsets = append(offsets, o)
		if counts[o] == 0 {
			order = append(order, o)
		}
		counts[o]++
	}

	consensus := order[0]
	for _, o := range order[1:] {
		if counts[o] > counts[consensus] {
			consensus = o
		}
	}
	agreed := counts[consensus]

	ratio := float64(agreed) / float64(len(valid))
	var conf Confidence
	switch {
	case ratio == 1.0:
		conf = ConfidenceHigh
	case ratio >= 0.66:
		conf = ConfidenceMedium
	default:
		conf = ConfidenceLow
	}

	res := Result{
		Offset:             &consensus,
		Confidence:         conf,
		SamplesProcessed:   len(samples),
		SamplesValid:       len(valid),
		SamplesAgreed:      agreed,
		AgreementRatio:     ratio,
		AllOffsets:         offsets,
		OffsetDistribution: counts,
		Evidence:           buildEvidence(samples, &consensus),
	}

	switch conf {
	case ConfidenceLow:
		res.Warning = fmt.Sprintf("Low confidence: Only %d/%d samples agree. Manual review recommended.", agreed, len(valid))
	case ConfidenceMedium:
		res.Warning = fmt.Sprintf("Medium confidence: %d/%d samples agree. Consider manual verification.", agreed, len(valid))
	}

	return res
}

func buildEvidence(samples []Sample, consensus *int) []Evidence {
	ev := make([]Evidence, 0, len(samples))
	for _, s := range samples {
		e := Evidence{
			PDFPage:       s.PhysicalPage,
			DetectedLabel: s.DetectedLabel,
			Offset:        s.Offset(),
		}
		if consensus != nil && s.Offset() != nil {
			e.AgreesWithConsensus = *s.Offset() == *consensus
		}
		ev = append(ev, e)
	}
	return ev
}

// Outliers returns the valid samples that disagree with the consensus offset.
func Outliers(samples []Sample) []Sample {
	var valid []Sample
	for _, s := range samples {
		if s.Offset() != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) < 2 {
		return nil
	}

	res := Consensus(samples)
	var out []Sample
	for _, s := range valid {
		if *s.Offset() != *res.Offset {
			out = append(out, s)
		}
	}
	return out
}
