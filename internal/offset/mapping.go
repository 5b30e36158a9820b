package offset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MethodOCRAuto tags mappings produced by the automated OCR path.
const MethodOCRAuto = "ocr_auto"

// DefaultMaxOffset is the largest offset magnitude considered sane.
const DefaultMaxOffset = 50

// Validation is a sanity check on offset magnitude.
type Validation struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// Validate checks that an offset is plausible for a real document.
func Validate(off *int, maxOffset int) Validation {
	if off == nil {
		return Validation{IsValid: false, Message: "No offset detected"}
	}

	o := *off
	abs := o
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs > maxOffset:
		return Validation{IsValid: false, Message: fmt.Sprintf("Offset %d exceeds maximum %d. May be incorrect.", o, maxOffset)}
	case o < 0:
		return Validation{IsValid: true, Message: fmt.Sprintf("Negative offset (%d): PDF pages numbered lower than document pages", o)}
	case o == 0:
		return Validation{IsValid: true, Message: "Zero offset: PDF and document pages match"}
	default:
		return Validation{IsValid: true, Message: fmt.Sprintf("Positive offset (%d): PDF pages numbered higher than document pages", o)}
	}
}

// DocumentMapping is the persisted record for one (company, document).
// Offset stays a signed integer or null; it is never coerced.
type DocumentMapping struct {
	Company            string      `json:"company"`
	CompanyKey         string      `json:"company_key"`
	DocumentName       string      `json:"document_name"`
	PDFPath            string      `json:"pdf_path,omitempty"`
	Offset             *int        `json:"offset"`
	Confidence         Confidence  `json:"confidence"`
	SamplesProcessed   int         `json:"samples_processed"`
	SamplesValid       int         `json:"samples_valid"`
	SamplesAgreed      int         `json:"samples_agreed"`
	Method             string      `json:"method"`
	Evidence           []Evidence  `json:"evidence"`
	EvidenceImages     []string    `json:"evidence_images"`
	Warning            string      `json:"warning,omitempty"`
	Message            string      `json:"message,omitempty"`
	OffsetDistribution map[int]int `json:"offset_distribution,omitempty"`
	Validation         Validation  `json:"validation"`
}

// BuildMapping assembles the persistable record for one document from a
// consensus result. Evidence image paths are index-aligned with the evidence
// entries.
func BuildMapping(company, year, documentName string, res Result, evidenceImages []string, method string, maxOffset int) DocumentMapping {
	if method == "" {
		method = MethodOCRAuto
	}
	if maxOffset <= 0 {
		maxOffset = DefaultMaxOffset
	}

	return DocumentMapping{
		Company:            company,
		CompanyKey:         fmt.Sprintf("%s_%s", company, year),
		DocumentName:       documentName,
		Offset:             res.Offset,
		Confidence:         res.Confidence,
		SamplesProcessed:   res.SamplesProcessed,
		SamplesValid:       res.SamplesValid,
		SamplesAgreed:      res.SamplesAgreed,
		Method:             method,
		Evidence:           res.Evidence,
		EvidenceImages:     evidenceImages,
		Warning:            res.Warning,
		Message:            res.Message,
		OffsetDistribution: res.OffsetDistribution,
		Validation:         Validate(res.Offset, maxOffset),
	}
}

// Mappings is the aggregate output keyed by "<company>_<year>".
type Mappings map[string]DocumentMapping

// Add inserts a mapping under its composite key. Last write wins for
// duplicate keys; repeated runs overwrite prior records.
func (m Mappings) Add(dm DocumentMapping) {
	m[dm.CompanyKey] = dm
}

// Merge folds other into m, last write wins.
func (m Mappings) Merge(other Mappings) {
	for k, v := range other {
		m[k] = v
	}
}

// Save writes the mappings as indented JSON.
func (m Mappings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mappings: %w", err)
	}
	return nil
}

// LoadMappings reads a mappings file written by Save.
func LoadMappings(path string) (Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	var m Mappings
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mappings: %w", err)
	}
	return m, nil
}
