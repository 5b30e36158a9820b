// Package export renders reviewed extraction output as an Excel workbook for
// analysts who work outside the JSON pipeline.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/local/pagealign/internal/review"
)

const (
	sheetSnippets = "Snippets"
	sheetRemoved  = "Removed"
)

// Workbook writes one xlsx with a sheet of all retained snippets across the
// reviewed files and a sheet of snippets the review removed. reviewPath may
// be empty when no review ran; the Removed sheet then stays header-only.
func Workbook(reviewedFiles []string, reviewPath, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetSnippets)
	if _, err := f.NewSheet(sheetRemoved); err != nil {
		return fmt.Errorf("create removed sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDDDDD"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSnippets(f, header, reviewedFiles); err != nil {
		return err
	}
	if err := writeRemoved(f, header, reviewPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Info().Str("path", outPath).Int("files", len(reviewedFiles)).Msg("workbook exported")
	return nil
}

func writeSnippets(f *excelize.File, headerStyle int, files []string) error {
	cols := []any{"File", "Question ID", "Question Text", "Category", "Snippet ID", "Classification", "Snippet"}
	if err := f.SetSheetRow(sheetSnippets, "A1", &cols); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSnippets, "A1", "G1", headerStyle); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetSnippets, "C", "C", 60)
	_ = f.SetColWidth(sheetSnippets, "G", "G", 80)

	row := 2
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read reviewed file: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		base := filepath.Base(path)
		for _, q := range asSlice(doc["analysis_results"]) {
			question, ok := q.(map[string]any)
			if !ok {
				continue
			}
			qid := asString(question["question_id"])
			qText := asString(question["question_text"])
			category := asString(question["category"])

			for _, d := range asSlice(question["disclosures"]) {
				snip, ok := d.(map[string]any)
				if !ok {
					continue
				}
				text := asString(snip["text"])
				if text == "" {
					text = asString(snip["quote"])
				}
				values := []any{base, qid, qText, category, asString(snip["snippet_id"]), asString(snip["classification"]), text}
				cell, _ := excelize.CoordinatesToCellName(1, row)
				if err := f.SetSheetRow(sheetSnippets, cell, &values); err != nil {
					return err
				}
				row++
			}
		}
	}
	return nil
}

func writeRemoved(f *excelize.File, headerStyle int, reviewPath string) error {
	cols := []any{"Source File", "Question ID", "Snippet", "Confidence", "Rationale", "Provider", "Model"}
	if err := f.SetSheetRow(sheetRemoved, "A1", &cols); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetRemoved, "A1", "G1", headerStyle); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetRemoved, "C", "C", 80)
	_ = f.SetColWidth(sheetRemoved, "E", "E", 60)

	if reviewPath == "" {
		return nil
	}
	records, err := loadReviewJSONL(reviewPath)
	if err != nil {
		return err
	}

	row := 2
	for _, rec := range records {
		for _, dec := range rec.LLMOutput.Decisions {
			if dec.Belongs {
				continue
			}
			values := []any{
				filepath.Base(rec.SourceFile),
				dec.QuestionID,
				rec.Snippet,
				dec.Confidence,
				dec.Rationale,
				rec.Provider,
				rec.Model,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheetRemoved, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func loadReviewJSONL(path string) ([]review.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read review file: %w", err)
	}
	var records []review.Record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec review.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse review line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
