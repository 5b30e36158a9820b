package review

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// ReviewMap indexes decisions by question id, then by exact snippet text.
type ReviewMap map[string]map[string]Decision

// LoadRecords reads a JSONL review file into a lookup map. The first decision
// seen for a (question, snippet) pair wins.
func LoadRecords(path string) (ReviewMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open review file: %w", err)
	}
	defer f.Close()

	m := ReviewMap{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parse review line %d: %w", line, err)
		}
		for _, d := range rec.LLMOutput.Decisions {
			byText, ok := m[d.QuestionID]
			if !ok {
				byText = map[string]Decision{}
				m[d.QuestionID] = byText
			}
			if _, exists := byText[rec.Snippet]; !exists {
				byText[rec.Snippet] = d
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read review file: %w", err)
	}
	return m, nil
}

// ApplyCounts reports what one apply pass changed.
type ApplyCounts struct {
	QuestionsModified int
	SnippetsRemoved   int
}

// ReviewSummary annotates a question after review.
type ReviewSummary struct {
	Status    string     `json:"status"`
	Summary   string     `json:"summary"`
	Decisions []Decision `json:"decisions"`
}

// ApplyToFile rewrites one merged file: snippets flagged as not belonging
// (at or above the confidence threshold) are removed, and each touched
// question gains a cross_question_review summary. Output lands beside the
// input with outputSuffix replacing "_deduped" in the name.
func ApplyToFile(path, outputSuffix string, reviews ReviewMap, confidenceThreshold float64) (ApplyCounts, error) {
	var counts ApplyCounts

	data, err := os.ReadFile(path)
	if err != nil {
		return counts, fmt.Errorf("read merged file: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return counts, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, q := range asSlice(doc["analysis_results"]) {
		question, ok := q.(map[string]any)
		if !ok {
			continue
		}
		qid := questionID(question)
		byText, reviewed := reviews[qid]
		if qid == "" || !reviewed {
			continue
		}

		var decisions []Decision
		var filtered []any
		removed := 0
		for _, d := range asSlice(question["disclosures"]) {
			snip, ok := d.(map[string]any)
			if !ok {
				filtered = append(filtered, d)
				continue
			}
			decision, found := byText[snippetText(snip)]
			if !found {
				filtered = append(filtered, d)
				continue
			}
			decisions = append(decisions, decision)
			if decision.Belongs || decision.Confidence < confidenceThreshold {
				filtered = append(filtered, d)
			} else {
				removed++
			}
		}

		if len(decisions) > 0 {
			if filtered == nil {
				filtered = []any{}
			}
			question["disclosures"] = filtered
			question["cross_question_review"] = summarize(decisions, removed)
			counts.SnippetsRemoved += removed
			counts.QuestionsModified++
		}
	}

	outPath := strings.Replace(path, "_deduped", outputSuffix, 1)
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return counts, fmt.Errorf("marshal reviewed output: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return counts, fmt.Errorf("write reviewed output: %w", err)
	}

	log.Info().
		Str("file", path).
		Int("questions_modified", counts.QuestionsModified).
		Int("snippets_removed", counts.SnippetsRemoved).
		Msg("applied review decisions")
	return counts, nil
}

func summarize(decisions []Decision, removed int) ReviewSummary {
	if removed > 0 {
		return ReviewSummary{
			Status:    "needs_attention",
			Summary:   fmt.Sprintf("%d snippet(s) removed after cross-question review.", removed),
			Decisions: decisions,
		}
	}
	return ReviewSummary{
		Status:    "clean",
		Summary:   "All reviewed snippets retained.",
		Decisions: decisions,
	}
}
