package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/local/pagealign/internal/offset"
)

// WriteReport renders the human-readable run report: aggregate statistics
// first, then one block per mapped document sorted by company key.
func WriteReport(path string, res *RunResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("PAGE OFFSET DETECTION REPORT\n")
	b.WriteString("============================\n\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", res.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n\n", res.Duration.Round(time.Millisecond))

	sum := offset.Summarize(res.Mappings)
	fmt.Fprintf(&b, "Documents processed: %d\n", len(res.Results))
	fmt.Fprintf(&b, "Documents mapped:    %d\n", sum.TotalDocuments)
	fmt.Fprintf(&b, "With offset:         %d\n", sum.DocumentsWithOffset)
	fmt.Fprintf(&b, "No offset:           %d\n\n", sum.DocumentsNoOffset)

	b.WriteString("Confidence distribution:\n")
	for _, tier := range []offset.Confidence{offset.ConfidenceHigh, offset.ConfidenceMedium, offset.ConfidenceLow, offset.ConfidenceNone} {
		fmt.Fprintf(&b, "  %-6s %d\n", tier, sum.ConfidenceDistribution[tier])
	}
	b.WriteByte('\n')

	if sum.Offsets != nil {
		b.WriteString("Offset statistics:\n")
		fmt.Fprintf(&b, "  min %d, max %d, mean %.2f, median %.1f, mode %d\n\n",
			sum.Offsets.Min, sum.Offsets.Max, sum.Offsets.Mean, sum.Offsets.Median, sum.Offsets.Mode)
	}

	skipped, failed := 0, 0
	for _, dr := range res.Results {
		switch dr.Outcome {
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	if skipped > 0 || failed > 0 {
		fmt.Fprintf(&b, "Skipped: %d, Failed: %d\n\n", skipped, failed)
	}

	b.WriteString("PER-DOCUMENT RESULTS\n")
	b.WriteString("--------------------\n\n")

	keys := make([]string, 0, len(res.Mappings))
	for k := range res.Mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		dm := res.Mappings[k]
		fmt.Fprintf(&b, "%s (%s)\n", k, dm.DocumentName)
		if dm.Offset != nil {
			fmt.Fprintf(&b, "  Offset:     %d\n", *dm.Offset)
		} else {
			b.WriteString("  Offset:     none\n")
		}
		fmt.Fprintf(&b, "  Confidence: %s\n", dm.Confidence)
		fmt.Fprintf(&b, "  Samples:    %d/%d valid, %d agreed\n", dm.SamplesValid, dm.SamplesProcessed, dm.SamplesAgreed)
		fmt.Fprintf(&b, "  Validation: %s\n", dm.Validation.Message)
		if dm.Warning != "" {
			fmt.Fprintf(&b, "  Warning:    %s\n", dm.Warning)
		}
		if dm.Message != "" {
			fmt.Fprintf(&b, "  Note:       %s\n", dm.Message)
		}
		for _, ev := range dm.Evidence {
			label, off := "none", "none"
			if ev.DetectedLabel != nil {
				label = fmt.Sprintf("%d", *ev.DetectedLabel)
			}
			if ev.Offset != nil {
				off = fmt.Sprintf("%d", *ev.Offset)
			}
			marker := " "
			if ev.AgreesWithConsensus {
				marker = "*"
			}
			fmt.Fprintf(&b, "  %s pdf page %d -> label %s (offset %s)\n", marker, ev.PDFPage, label, off)
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteFlagged writes the company keys needing manual review, one per line.
// An empty list still produces the file so downstream steps can rely on it.
func WriteFlagged(path string, flagged []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Documents flagged for manual review (confidence below HIGH)\n")
	for _, key := range flagged {
		b.WriteString(key)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write flagged list: %w", err)
	}
	return nil
}
