package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pagealign/internal/storage"
)

// ErrDocumentOpen marks a document that cannot be opened or whose page count
// is unreadable. The pipeline skips such a document entirely.
var ErrDocumentOpen = errors.New("document open failed")

// PageCount returns the number of pages in a local PDF. pdfcpu is the fast
// path; go-fitz is tried before giving up since it tolerates some files
// pdfcpu rejects.
func PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err == nil {
		return n, nil
	}
	log.Debug().Err(err).Str("pdf", pdfPath).Msg("pdfcpu page count failed, trying go-fitz")

	doc, ferr := fitz.New(pdfPath)
	if ferr != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrDocumentOpen, pdfPath, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// ResolveRef materializes a document reference as a local file path.
// Supports:
// - file://path or plain filesystem paths
// - http(s):// URLs (downloads to temp)
// - s3://bucket/key (downloads via AWS SDK v2, decrypting when a password is set)
// The returned cleanup removes any temp file and is always safe to call.
func ResolveRef(ctx context.Context, ref string, s3c *storage.S3Client, password string) (string, func(), error) {
	noop := func() {}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		if s3c == nil {
			return "", noop, fmt.Errorf("%w: s3 ref %q without storage client", ErrDocumentOpen, ref)
		}
		path, err := s3c.DownloadToTemp(ctx, ref, password)
		if err != nil {
			return "", noop, fmt.Errorf("%w: %v", ErrDocumentOpen, err)
		}
		return path, func() { os.Remove(path) }, nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		path, err := downloadHTTPToTemp(ctx, ref)
		if err != nil {
			return "", noop, fmt.Errorf("%w: %v", ErrDocumentOpen, err)
		}
		return path, func() { os.Remove(path) }, nil
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), noop, nil
	default:
		return ref, noop, nil
	}
}

func downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	f, err := os.CreateTemp("", "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return f.Name(), nil
}
