package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tesseract runs the tesseract binary over page images. Input is piped as PNG
// on stdin; word boxes come back as TSV, plain text as txt.
type Tesseract struct {
	binary string
	lang   string
}

// NewTesseract creates a tesseract-backed recognizer.
func NewTesseract(binary, lang string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{binary: binary, lang: lang}
}

// IsAvailable checks if the tesseract binary is on PATH.
func (t *Tesseract) IsAvailable() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// RecognizeWords runs OCR and parses the TSV output into words.
func (t *Tesseract) RecognizeWords(ctx context.Context, img image.Image) ([]Word, error) {
	out, err := t.run(ctx, img, "tsv")
	if err != nil {
		return nil, err
	}
	words := parseTSV(out)
	log.Debug().Int("words", len(words)).Msg("ocr word recognition complete")
	return words, nil
}

// RecognizeText runs OCR and returns the plain page text.
func (t *Tesseract) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	out, err := t.run(ctx, img, "txt")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Tesseract) run(ctx context.Context, img image.Image, format string) ([]byte, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("encode ocr input: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.lang, format)
	cmd.Stdin = &in

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract %s failed: %w", format, err)
	}
	return out, nil
}

// parseTSV extracts word-level rows from tesseract TSV output.
// Columns: level page block par line word left top width height conf text.
// Word rows have level 5; rows with conf -1 carry layout only.
func parseTSV(data []byte) []Word {
	var words []Word

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			// header or trailing blank
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != 5 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		words = append(words, Word{
			Text:   text,
			Left:   left,
			Top:    top,
			Width:  width,
			Height: height,
			Conf:   conf,
		})
	}
	return words
}
