package ocr

import (
	"context"
	"image"
)

// Word is one recognized token with its position and confidence.
// Coordinates are pixels in the source image; Conf is 0-100.
type Word struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
	Conf   float64
}

// Recognizer produces text from a rendered page image. Implementations must
// return words in natural scan order (top-to-bottom, left-to-right as the
// engine emits them); candidate selection depends on that order.
type Recognizer interface {
	// RecognizeWords returns per-word text, position and confidence.
	RecognizeWords(ctx context.Context, img image.Image) ([]Word, error)
	// RecognizeText returns the plain page text.
	RecognizeText(ctx context.Context, img image.Image) (string, error)
}
