// Package placeholder maintains empty .txt companions next to source PDFs so
// downstream extraction tooling always finds a text sidecar per document.
package placeholder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Summary counts what one pass did per company tree.
type Summary struct {
	Created int
	Updated int
	Skipped int
	Errors  int
}

func (s Summary) Total() int { return s.Created + s.Updated + s.Skipped }

// EnsureForTree walks root/<company>/<year> for each company and ensures every
// PDF has a same-named empty .txt beside it. An existing empty sidecar gets
// its timestamp refreshed, a non-empty one is left alone. With dryRun set,
// nothing is written.
func EnsureForTree(root, year string, companies []string, dryRun bool) (Summary, error) {
	var sum Summary

	if len(companies) == 0 {
		discovered, err := discoverCompanies(root)
		if err != nil {
			return sum, err
		}
		companies = discovered
	}

	for _, company := range companies {
		dir := filepath.Join(root, company, year)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn().Str("company", company).Str("dir", dir).Msg("no documents directory, skipping")
				continue
			}
			return sum, fmt.Errorf("read %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			pdfPath := filepath.Join(dir, e.Name())
			action, err := ensureSidecar(pdfPath, dryRun)
			if err != nil {
				log.Error().Err(err).Str("pdf", pdfPath).Msg("placeholder failed")
				sum.Errors++
				continue
			}
			switch action {
			case "created":
				sum.Created++
			case "updated":
				sum.Updated++
			default:
				sum.Skipped++
			}
		}
	}

	log.Info().
		Int("created", sum.Created).
		Int("updated", sum.Updated).
		Int("skipped", sum.Skipped).
		Int("errors", sum.Errors).
		Bool("dry_run", dryRun).
		Msg("placeholder pass complete")
	return sum, nil
}

// ensureSidecar creates or refreshes the .txt companion for one PDF and
// reports which action it took.
func ensureSidecar(pdfPath string, dryRun bool) (string, error) {
	txtPath := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".txt"

	info, err := os.Stat(txtPath)
	switch {
	case os.IsNotExist(err):
		if dryRun {
			return "created", nil
		}
		if err := os.WriteFile(txtPath, nil, 0o644); err != nil {
			return "", fmt.Errorf("create sidecar: %w", err)
		}
		return "created", nil
	case err != nil:
		return "", fmt.Errorf("stat sidecar: %w", err)
	case info.Size() == 0:
		if dryRun {
			return "updated", nil
		}
		if err := os.WriteFile(txtPath, nil, 0o644); err != nil {
			return "", fmt.Errorf("refresh sidecar: %w", err)
		}
		return "updated", nil
	default:
		// has real content, never clobber
		return "skipped", nil
	}
}

func discoverCompanies(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read source root: %w", err)
	}
	var companies []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			companies = append(companies, e.Name())
		}
	}
	return companies, nil
}
