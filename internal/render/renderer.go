package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// RenderPage rasterizes one physical page (1-based) of a PDF at the given DPI.
// A failure here is a per-page condition: the caller records the sample with
// no detected label and moves on. The context bounds the render; a timed-out
// render is reported the same way as a failed one.
func RenderPage(ctx context.Context, pdfPath string, pageNum, dpi int) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)

	go func() {
		doc, err := fitz.New(pdfPath)
		if err != nil {
			ch <- result{nil, fmt.Errorf("open pdf: %w", err)}
			return
		}
		defer doc.Close()

		// go-fitz uses 0-based indexing
		img, err := doc.ImageDPI(pageNum-1, float64(dpi))
		if err != nil {
			ch <- result{nil, fmt.Errorf("render page %d: %w", pageNum, err)}
			return
		}
		ch <- result{img, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("render page %d: %w", pageNum, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		bounds := r.img.Bounds()
		log.Debug().
			Int("page", pageNum).
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Int("dpi", dpi).
			Msg("rendered page")
		return r.img, nil
	}
}

// EvidenceFilename builds the proof-image name for one sample.
// Pattern: <company>_<year>_sample<k>_pdf<page>_detected<label>.png,
// or _nodetection.png when no label was read.
func EvidenceFilename(company, year string, sampleNum, pdfPage int, detected *int) string {
	if detected != nil {
		return fmt.Sprintf("%s_%s_sample%d_pdf%d_detected%d.png", company, year, sampleNum, pdfPage, *detected)
	}
	return fmt.Sprintf("%s_%s_sample%d_pdf%d_nodetection.png", company, year, sampleNum, pdfPage)
}

// SaveEvidenceImage writes the rendered page under dir and returns the full path.
func SaveEvidenceImage(img image.Image, dir, company, year string, sampleNum, pdfPage int, detected *int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}

	path := filepath.Join(dir, EvidenceFilename(company, year, sampleNum, pdfPage, detected))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create evidence image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode evidence image: %w", err)
	}

	log.Debug().Str("file", filepath.Base(path)).Msg("saved evidence image")
	return path, nil
}

// Info describes a PDF for reporting.
type Info struct {
	Path     string
	Filename string
	Pages    int
	SizeMB   float64
}

// GetInfo returns basic metadata about a PDF.
func GetInfo(pdfPath string) (Info, error) {
	pages, err := PageCount(pdfPath)
	if err != nil {
		return Info{}, err
	}
	st, err := os.Stat(pdfPath)
	if err != nil {
		return Info{}, fmt.Errorf("stat pdf: %w", err)
	}
	return Info{
		Path:     pdfPath,
		Filename: filepath.Base(pdfPath),
		Pages:    pages,
		SizeMB:   float64(st.Size()) / (1024 * 1024),
	}, nil
}
