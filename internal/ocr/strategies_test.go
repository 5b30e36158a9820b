package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(text string, top int, conf float64) Word {
	return Word{Text: text, Top: top, Conf: conf}
}

func TestPositionalStrategyZones(t *testing.T) {
	s := &PositionalStrategy{MinConfidence: 50}
	p := Page{
		Height: 1000,
		Words: []Word{
			word("42", 950, 90),  // footer
			word("7", 30, 85),    // header
			word("999", 500, 99), // body, ignored
		},
	}

	cands := s.Candidates(p)
	assert.Equal(t, []int{42, 7}, cands)
}

func TestPositionalStrategyFiltersLowConfidence(t *testing.T) {
	s := &PositionalStrategy{MinConfidence: 50}
	p := Page{
		Height: 1000,
		Words: []Word{
			word("42", 950, 50), // at threshold, rejected
			word("43", 960, 51),
		},
	}
	assert.Equal(t, []int{43}, s.Candidates(p))
}

func TestPositionalStrategyRejectsNonNumeric(t *testing.T) {
	s := &PositionalStrategy{MinConfidence: 50}
	p := Page{
		Height: 1000,
		Words: []Word{
			word("Page", 950, 95),
			word("4a", 955, 95),
			word("+12", 960, 95),
			word("17", 965, 95),
		},
	}
	assert.Equal(t, []int{17}, s.Candidates(p))
}

func TestPositionalStrategyZeroHeight(t *testing.T) {
	s := &PositionalStrategy{MinConfidence: 50}
	assert.Nil(t, s.Candidates(Page{Words: []Word{word("42", 0, 95)}}))
}

func TestPatternStrategyPriorityOrder(t *testing.T) {
	s := &PatternStrategy{}

	// "Page N" outranks a standalone number appearing earlier in the text
	p := Page{Text: "17\nsome body text\nPage 42\n"}
	cands := s.Candidates(p)
	require.NotEmpty(t, cands)
	assert.Equal(t, 42, cands[0])
}

func TestPatternStrategyShapes(t *testing.T) {
	s := &PatternStrategy{}
	cases := []struct {
		text string
		want int
	}{
		{"Page 42", 42},
		{"Page: 7", 7},
		{"P. 13 continues", 13},
		{"- 42 -", 42},
		{"header\n  42  \nfooter", 42},
		{"42 of 100", 42},
		{"3/10", 3},
	}
	for _, tc := range cases {
		cands := s.Candidates(Page{Text: tc.text})
		require.NotEmpty(t, cands, "text %q", tc.text)
		assert.Equal(t, tc.want, cands[0], "text %q", tc.text)
	}
}

func TestPatternStrategyNoMatch(t *testing.T) {
	s := &PatternStrategy{}
	assert.Empty(t, s.Candidates(Page{Text: "no numbers in any page shape here"}))
}

func TestParsePageNumberRange(t *testing.T) {
	for _, bad := range []string{"", "0", "10000", "4a", "-5", "+5", "1.5"} {
		_, ok := parsePageNumber(bad)
		assert.False(t, ok, "input %q", bad)
	}
	n, ok := parsePageNumber("9999")
	assert.True(t, ok)
	assert.Equal(t, 9999, n)
	n, ok = parsePageNumber("1")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestIsPlausible(t *testing.T) {
	assert.True(t, IsPlausible(42, 47, 50))
	assert.True(t, IsPlausible(47, 42, 50))
	assert.False(t, IsPlausible(1, 100, 50))
}

// fakeRecognizer serves canned output for detector tests.
type fakeRecognizer struct {
	words   []Word
	text    string
	wordErr error
	textErr error
}

func (f *fakeRecognizer) RecognizeWords(context.Context, image.Image) ([]Word, error) {
	return f.words, f.wordErr
}

func (f *fakeRecognizer) RecognizeText(context.Context, image.Image) (string, error) {
	return f.text, f.textErr
}

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 800, 1000))
}

func TestDetectLabelPositionalWinsOverPattern(t *testing.T) {
	rec := &fakeRecognizer{
		words: []Word{word("42", 950, 95)},
		text:  "Page 7",
	}
	d := NewDetector(rec)

	label, err := d.DetectLabel(context.Background(), testImage())
	require.NoError(t, err)
	require.NotNil(t, label)
	assert.Equal(t, 42, *label)
}

func TestDetectLabelFallsBackToPattern(t *testing.T) {
	rec := &fakeRecognizer{
		words: []Word{word("noise", 500, 95)},
		text:  "chapter text\nPage 7\n",
	}
	d := NewDetector(rec)

	label, err := d.DetectLabel(context.Background(), testImage())
	require.NoError(t, err)
	require.NotNil(t, label)
	assert.Equal(t, 7, *label)
}

func TestDetectLabelNothingFound(t *testing.T) {
	rec := &fakeRecognizer{text: "no page shapes"}
	d := NewDetector(rec)

	label, err := d.DetectLabel(context.Background(), testImage())
	require.NoError(t, err)
	assert.Nil(t, label)
}

func TestDetectLabelToleratesOneFailingForm(t *testing.T) {
	rec := &fakeRecognizer{
		wordErr: errors.New("tsv failed"),
		text:    "Page 7",
	}
	d := NewDetector(rec)

	label, err := d.DetectLabel(context.Background(), testImage())
	require.NoError(t, err)
	require.NotNil(t, label)
	assert.Equal(t, 7, *label)
}

func TestDetectLabelBothFormsFailing(t *testing.T) {
	rec := &fakeRecognizer{
		wordErr: errors.New("tsv failed"),
		textErr: errors.New("txt failed"),
	}
	d := NewDetector(rec)

	_, err := d.DetectLabel(context.Background(), testImage())
	assert.Error(t, err)
}
