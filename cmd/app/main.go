package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pagealign/internal/config"
	"github.com/local/pagealign/internal/detect"
	"github.com/local/pagealign/internal/export"
	logpkg "github.com/local/pagealign/internal/logger"
	"github.com/local/pagealign/internal/metrics"
	"github.com/local/pagealign/internal/ocr"
	"github.com/local/pagealign/internal/placeholder"
	"github.com/local/pagealign/internal/review"
	"github.com/local/pagealign/internal/storage"
)

const usage = `usage: pagealign <command>

commands:
  detect        detect page offsets across the source tree
  review [--dry-run]
                LLM-review duplicate snippets in merged extraction files
  apply <jsonl> fold review decisions back into the merged files
  export <out.xlsx> [review.jsonl]
                export reviewed files as an Excel workbook
  placeholders [--dry-run]
                ensure empty .txt sidecars exist beside source PDFs
`

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()
	if cfg.MetricsPort != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			addr := ":" + cfg.MetricsPort
			log.Info().Msgf("metrics listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "detect":
		err = runDetect(ctx, cfg)
	case "review":
		dryRun := len(os.Args) > 2 && os.Args[2] == "--dry-run"
		var outPath string
		outPath, err = review.Run(ctx, cfg, dryRun)
		if outPath != "" {
			fmt.Println(outPath)
		}
	case "apply":
		if len(os.Args) < 3 {
			err = fmt.Errorf("apply requires a review JSONL path")
			break
		}
		var counts review.ApplyCounts
		counts, err = review.Apply(os.Args[2], cfg)
		if err == nil {
			fmt.Printf("questions modified: %d, snippets removed: %d\n", counts.QuestionsModified, counts.SnippetsRemoved)
		}
	case "export":
		if len(os.Args) < 3 {
			err = fmt.Errorf("export requires an output .xlsx path")
			break
		}
		reviewPath := ""
		if len(os.Args) > 3 {
			reviewPath = os.Args[3]
		}
		var files []string
		files, err = filepath.Glob(filepath.Join(cfg.Review.InputDir, "*_deduped_and_reviewed.json"))
		if err == nil {
			err = export.Workbook(files, reviewPath, os.Args[2])
		}
	case "placeholders":
		dryRun := len(os.Args) > 2 && os.Args[2] == "--dry-run"
		_, err = placeholder.EnsureForTree(cfg.Source.Root, cfg.Source.Year, cfg.Source.Companies, dryRun)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func runDetect(ctx context.Context, cfg cfgpkg.Config) error {
	rec := ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.Lang)
	if !rec.IsAvailable() {
		return fmt.Errorf("ocr binary %q not found on PATH", cfg.OCR.Binary)
	}

	var s3c *storage.S3Client
	if cfg.Storage.Bucket != "" || cfg.Storage.Region != "" {
		var err error
		s3c, err = storage.NewS3Client(ctx, storage.Options{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("init s3 client: %w", err)
		}
	}

	res, err := detect.NewRunner(cfg, rec, s3c).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("mapped %d documents, %d flagged for review\n", len(res.Mappings), len(res.Flagged))
	fmt.Println(filepath.Join(cfg.Detect.OutputDir, detect.MappingsFile))
	return nil
}
