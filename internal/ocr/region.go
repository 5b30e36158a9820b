package ocr

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"regexp"
)

// Region selects a horizontal band of the page for ad-hoc inspection.
type Region string

const (
	RegionHeader Region = "header"
	RegionFooter Region = "footer"
)

var numberRe = regexp.MustCompile(`\b(\d+)\b`)

// ExtractRegionNumbers crops the header or footer band (heightFraction of
// page height, 0.15 when <= 0) and returns every in-range number found there.
// This is a manual-inspection helper, not part of the detection path.
func ExtractRegionNumbers(ctx context.Context, rec Recognizer, img image.Image, region Region, heightFraction float64) ([]int, error) {
	if heightFraction <= 0 {
		heightFraction = 0.15
	}

	bounds := img.Bounds()
	band := int(float64(bounds.Dy()) * heightFraction)

	var crop image.Rectangle
	switch region {
	case RegionHeader:
		crop = image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+band)
	case RegionFooter:
		crop = image.Rect(bounds.Min.X, bounds.Max.Y-band, bounds.Max.X, bounds.Max.Y)
	default:
		return nil, fmt.Errorf("unknown region %q", region)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, crop.Min, draw.Src)

	text, err := rec.RecognizeText(ctx, cropped)
	if err != nil {
		return nil, fmt.Errorf("recognize %s region: %w", region, err)
	}

	var numbers []int
	for _, m := range numberRe.FindAllStringSubmatch(text, -1) {
		if n, ok := parsePageNumber(m[1]); ok {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}
