package ocr

import (
	"context"
	"image"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Labeled page numbers are accepted in this inclusive range.
const (
	minPageNumber = 1
	maxPageNumber = 9999
)

// Page is the recognized content of one rendered page, shared by all
// strategies so recognition runs once.
type Page struct {
	Height int
	Words  []Word
	Text   string
}

// Strategy proposes candidate labeled page numbers for a page, in its own
// priority order. The detector tries strategies in list order and takes the
// first candidate of the first strategy that yields any; priority lives in
// the list, not in control flow.
type Strategy interface {
	Name() string
	Candidates(p Page) []int
}

// Detector combines a recognizer with an ordered strategy list.
type Detector struct {
	rec        Recognizer
	strategies []Strategy
}

// NewDetector builds a detector. With no strategies given it uses the default
// priority: positional (header/footer zones) before pattern matching, since
// position is a stronger page-number signal than free-text patterns that can
// false-positive on dates, figures or citations in body text.
func NewDetector(rec Recognizer, strategies ...Strategy) *Detector {
	if len(strategies) == 0 {
		strategies = []Strategy{
			&PositionalStrategy{MinConfidence: 50},
			&PatternStrategy{},
		}
	}
	return &Detector{rec: rec, strategies: strategies}
}

// DetectLabel returns the labeled page number read off the image, or nil when
// no strategy yields a candidate. A recognizer failure on one input form is
// tolerated as long as the other succeeds.
func (d *Detector) DetectLabel(ctx context.Context, img image.Image) (*int, error) {
	words, werr := d.rec.RecognizeWords(ctx, img)
	text, terr := d.rec.RecognizeText(ctx, img)
	if werr != nil && terr != nil {
		return nil, werr
	}
	if werr != nil {
		log.Debug().Err(werr).Msg("word recognition failed, pattern strategy only")
	}
	if terr != nil {
		log.Debug().Err(terr).Msg("text recognition failed, positional strategy only")
	}

	p := Page{Height: img.Bounds().Dy(), Words: words, Text: text}

	for _, s := range d.strategies {
		if cands := s.Candidates(p); len(cands) > 0 {
			label := cands[0]
			log.Debug().Str("strategy", s.Name()).Int("label", label).Int("candidates", len(cands)).Msg("label detected")
			return &label, nil
		}
	}
	return nil, nil
}

// PositionalStrategy picks numeric tokens sitting in the header zone (top 10%
// of page height) or footer zone (bottom 10%), in recognizer scan order.
type PositionalStrategy struct {
	MinConfidence float64
}

func (s *PositionalStrategy) Name() string { return "positional" }

func (s *PositionalStrategy) Candidates(p Page) []int {
	if p.Height == 0 {
		return nil
	}

	headerMax := float64(p.Height) * 0.10
	footerMin := float64(p.Height) * 0.90

	var cands []int
	for _, w := range p.Words {
		top := float64(w.Top)
		if top > headerMax && top < footerMin {
			continue
		}
		n, ok := parsePageNumber(w.Text)
		if !ok || w.Conf <= s.MinConfidence {
			continue
		}
		cands = append(cands, n)
	}
	return cands
}

// Common page number patterns, tried in fixed priority order.
var pagePatterns = []*regexp.Regexp{
	// "Page 42", "Page: 42"
	regexp.MustCompile(`(?i)\bPage[\s:.]*(\d+)\b`),
	// "P. 42"
	regexp.MustCompile(`(?i)\bP[\s:.]+(\d+)\b`),
	// "- 42 -", "| 42 |"
	regexp.MustCompile(`[-|]\s*(\d+)\s*[-|]`),
	// Standalone number on a line
	regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]*$`),
	// "42 of 100", "42/100"
	regexp.MustCompile(`(?i)\b(\d+)\s*(?:of|/)\s*\d+\b`),
}

// PatternStrategy matches known page-number shapes in the plain page text,
// preserving pattern priority order and match order within a pattern.
type PatternStrategy struct{}

func (s *PatternStrategy) Name() string { return "pattern" }

func (s *PatternStrategy) Candidates(p Page) []int {
	var cands []int
	for _, re := range pagePatterns {
		for _, m := range re.FindAllStringSubmatch(p.Text, -1) {
			if n, ok := parsePageNumber(m[1]); ok {
				cands = append(cands, n)
			}
		}
	}
	return cands
}

// IsPlausible flags detections implausibly far from the physical page index.
// Available for downstream filtering; detection itself does not apply it.
func IsPlausible(detected, physicalPage, maxOffset int) bool {
	offset := physicalPage - detected
	if offset < 0 {
		offset = -offset
	}
	return offset <= maxOffset
}

// parsePageNumber accepts purely numeric tokens within the page-number range.
func parsePageNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if n < minPageNumber || n > maxPageNumber {
		return 0, false
	}
	return n, true
}
