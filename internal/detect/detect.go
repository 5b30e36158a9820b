// Package detect orchestrates offset detection across a source document tree:
// it samples pages from each PDF, reads labeled page numbers with OCR, forms a
// consensus offset per document and persists mappings, evidence images and
// reports.
package detect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pagealign/internal/config"
	"github.com/local/pagealign/internal/filetype"
	"github.com/local/pagealign/internal/metrics"
	"github.com/local/pagealign/internal/ocr"
	"github.com/local/pagealign/internal/offset"
	"github.com/local/pagealign/internal/render"
	"github.com/local/pagealign/internal/storage"
)

// Output filenames under the configured output directory.
const (
	MappingsFile = "page_offset_mappings.json"
	ReportFile   = "detection_report.txt"
	FlaggedFile  = "flagged_for_review.txt"
	evidenceDir  = "evidence_images"
)

// Job identifies one document to probe.
type Job struct {
	Company      string
	Year         string
	DocumentName string
	Ref          string // local path, file://, http(s):// or s3://
}

// Outcome of processing one document.
const (
	OutcomeMapped  = "mapped"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// DocResult is the per-document processing record.
type DocResult struct {
	Job     Job
	Outcome string
	Mapping offset.DocumentMapping
	Err     error
}

// RunResult aggregates one detection run.
type RunResult struct {
	RunID    string
	Mappings offset.Mappings
	Results  []DocResult
	Flagged  []string // company keys whose confidence fell below HIGH
	Duration time.Duration
}

// Runner drives the detection pipeline.
type Runner struct {
	cfg      config.Config
	detector *ocr.Detector
	files    *filetype.Detector
	s3       *storage.S3Client // nil when no remote storage configured
}

// NewRunner wires a runner. s3c may be nil for purely local trees.
func NewRunner(cfg config.Config, rec ocr.Recognizer, s3c *storage.S3Client) *Runner {
	return &Runner{
		cfg:      cfg,
		detector: ocr.NewDetector(rec, &ocr.PositionalStrategy{MinConfidence: cfg.OCR.MinConfidence}, &ocr.PatternStrategy{}),
		files:    filetype.New(),
		s3:       s3c,
	}
}

// Run scans the source tree, processes every document through a worker pool
// and writes the mappings, report and flagged list. A per-document failure is
// recorded, not fatal.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("root", r.cfg.Source.Root).Str("year", r.cfg.Source.Year).Msg("detection run starting")

	jobs, err := r.collectJobs()
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		log.Warn().Msg("no documents found to process")
	}

	concurrency := r.cfg.Detect.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	jobCh := make(chan Job)
	resCh := make(chan DocResult)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				resCh <- r.processDocument(ctx, job)
			}
		}()
	}
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resCh)
	}()

	// Single aggregator goroutine semantics: only this loop touches the maps.
	res := &RunResult{RunID: runID, Mappings: offset.Mappings{}}
	for dr := range resCh {
		res.Results = append(res.Results, dr)
		metrics.IncDocument(dr.Outcome)
		switch dr.Outcome {
		case OutcomeMapped:
			res.Mappings.Add(dr.Mapping)
			metrics.IncConfidence(string(dr.Mapping.Confidence))
			if dr.Mapping.Confidence != offset.ConfidenceHigh {
				res.Flagged = append(res.Flagged, dr.Mapping.CompanyKey)
			}
		case OutcomeFailed:
			log.Error().Err(dr.Err).Str("company", dr.Job.Company).Str("document", dr.Job.DocumentName).Msg("document failed")
		case OutcomeSkipped:
			log.Warn().Err(dr.Err).Str("company", dr.Job.Company).Str("document", dr.Job.DocumentName).Msg("document skipped")
		}
	}
	sort.Strings(res.Flagged)
	res.Duration = time.Since(start)

	if err := r.writeOutputs(res); err != nil {
		return res, err
	}

	log.Info().
		Str("run_id", runID).
		Int("documents", len(res.Results)).
		Int("mapped", len(res.Mappings)).
		Int("flagged", len(res.Flagged)).
		Dur("duration", res.Duration).
		Msg("detection run complete")
	return res, nil
}

// collectJobs walks root/<company>/<year> for PDFs. With no companies
// configured every directory under root is taken as a company.
func (r *Runner) collectJobs() ([]Job, error) {
	companies := r.cfg.Source.Companies
	if len(companies) == 0 {
		entries, err := os.ReadDir(r.cfg.Source.Root)
		if err != nil {
			return nil, fmt.Errorf("read source root: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				companies = append(companies, e.Name())
			}
		}
		sort.Strings(companies)
	}

	var jobs []Job
	for _, company := range companies {
		dir := filepath.Join(r.cfg.Source.Root, company, r.cfg.Source.Year)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn().Str("company", company).Str("dir", dir).Msg("no documents for year, skipping")
				continue
			}
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			jobs = append(jobs, Job{
				Company:      company,
				Year:         r.cfg.Source.Year,
				DocumentName: e.Name(),
				Ref:          filepath.Join(dir, e.Name()),
			})
		}
	}
	return jobs, nil
}

// processDocument runs the whole sample-ocr-consensus pipeline for one PDF.
func (r *Runner) processDocument(ctx context.Context, job Job) DocResult {
	localPath, cleanup, err := render.ResolveRef(ctx, job.Ref, r.s3, r.cfg.Storage.SourcePassword)
	if err != nil {
		return DocResult{Job: job, Outcome: OutcomeSkipped, Err: err}
	}
	defer cleanup()

	if info, err := r.files.Detect(localPath); err != nil || !info.IsPDF {
		if err == nil {
			err = fmt.Errorf("not a PDF: %s (%s)", job.DocumentName, info.MIMEType)
		}
		return DocResult{Job: job, Outcome: OutcomeSkipped, Err: err}
	}

	totalPages, err := render.PageCount(localPath)
	if err != nil {
		return DocResult{Job: job, Outcome: OutcomeSkipped, Err: err}
	}

	pages := render.SelectSamplePages(totalPages, r.cfg.Detect.NumSamples, r.cfg.Detect.SkipFirst)
	if len(pages) == 0 {
		return DocResult{Job: job, Outcome: OutcomeSkipped, Err: fmt.Errorf("no sampleable pages in %d-page document", totalPages)}
	}
	log.Debug().Str("document", job.DocumentName).Int("pages", totalPages).Ints("samples", pages).Msg("sampling pages")

	samples := make([]offset.Sample, 0, len(pages))
	var images []string
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return DocResult{Job: job, Outcome: OutcomeFailed, Err: fmt.Errorf("cancelled at sample %d: %w", i+1, err)}
		}
		label, imgPath := r.processSample(ctx, job, localPath, i+1, page)
		samples = append(samples, offset.NewSample(page, label))
		if imgPath != "" {
			images = append(images, imgPath)
		}
	}

	res := offset.Consensus(samples)
	mapping := offset.BuildMapping(job.Company, job.Year, job.DocumentName, res, images, offset.MethodOCRAuto, r.cfg.Detect.MaxOffset)
	mapping.PDFPath = job.Ref

	log.Info().
		Str("company", job.Company).
		Str("document", job.DocumentName).
		Str("confidence", string(mapping.Confidence)).
		Interface("offset", mapping.Offset).
		Msg("document mapped")
	return DocResult{Job: job, Outcome: OutcomeMapped, Mapping: mapping}
}

// processSample renders one page, reads its label and saves the evidence
// image. A render or OCR failure yields a nil label; the sample still counts.
func (r *Runner) processSample(ctx context.Context, job Job, localPath string, sampleNum, page int) (*int, string) {
	rctx, cancel := context.WithTimeout(ctx, r.cfg.Detect.RenderTimeout)
	defer cancel()

	renderStart := time.Now()
	img, err := render.RenderPage(rctx, localPath, page, r.cfg.Detect.RenderDPI)
	metrics.ObserveRender(time.Since(renderStart))
	if err != nil {
		metrics.IncSample("render_failed")
		log.Warn().Err(err).Str("document", job.DocumentName).Int("page", page).Msg("render failed, sample counts as no detection")
		return nil, ""
	}

	octx, ocancel := context.WithTimeout(ctx, r.cfg.OCR.Timeout)
	defer ocancel()

	ocrStart := time.Now()
	label, err := r.detector.DetectLabel(octx, img)
	metrics.ObserveOCR(time.Since(ocrStart))
	if err != nil {
		log.Warn().Err(err).Str("document", job.DocumentName).Int("page", page).Msg("ocr failed, sample counts as no detection")
		label = nil
	}
	if label != nil {
		metrics.IncSample("detected")
	} else {
		metrics.IncSample("nodetection")
	}

	dir := filepath.Join(r.cfg.Detect.OutputDir, evidenceDir)
	imgPath, err := render.SaveEvidenceImage(img, dir, job.Company, job.Year, sampleNum, page, label)
	if err != nil {
		log.Warn().Err(err).Str("document", job.DocumentName).Msg("failed to save evidence image")
		return label, ""
	}

	if r.s3 != nil && r.cfg.Storage.Bucket != "" {
		if _, err := r.s3.UploadEvidence(ctx, imgPath, r.cfg.Storage.EvidencePrefix); err != nil {
			log.Warn().Err(err).Str("image", filepath.Base(imgPath)).Msg("evidence upload failed")
		}
	}
	return label, imgPath
}

func (r *Runner) writeOutputs(res *RunResult) error {
	outDir := r.cfg.Detect.OutputDir
	if err := res.Mappings.Save(filepath.Join(outDir, MappingsFile)); err != nil {
		return err
	}
	if err := WriteReport(filepath.Join(outDir, ReportFile), res); err != nil {
		return err
	}
	return WriteFlagged(filepath.Join(outDir, FlaggedFile), res.Flagged)
}
