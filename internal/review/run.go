package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pagealign/internal/aicache"
	"github.com/local/pagealign/internal/config"
	"github.com/local/pagealign/internal/limiter"
)

// Run executes the review workflow end to end: find duplicate groups in the
// merged files, arbitrate each with the LLM and append the records to a
// timestamped JSONL file. Returns the JSONL path. With dryRun set the groups
// are only listed; no LLM calls are made and nothing is written. Per-group
// failures are logged and skipped so one bad group does not sink the run.
func Run(ctx context.Context, cfg config.Config, dryRun bool) (string, error) {
	files, err := filepath.Glob(filepath.Join(cfg.Review.InputDir, cfg.Review.Pattern))
	if err != nil {
		return "", fmt.Errorf("glob merged files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files matching %s under %s", cfg.Review.Pattern, cfg.Review.InputDir)
	}

	groups, err := FindDuplicateGroups(files, cfg.Review.SkipPlaceholder)
	if err != nil {
		return "", err
	}
	if cfg.Review.Limit > 0 && len(groups) > cfg.Review.Limit {
		groups = groups[:cfg.Review.Limit]
	}
	log.Info().Int("files", len(files)).Int("groups", len(groups)).Msg("duplicate groups found")

	if dryRun {
		for i, g := range groups {
			qids := make([]string, 0, len(g.Entries))
			for _, e := range g.Entries {
				qids = append(qids, e.QuestionID)
			}
			log.Info().Int("group", i+1).Str("file", filepath.Base(g.File)).Strs("questions", qids).Str("snippet", truncate(g.Text, 120)).Msg("would review")
		}
		return "", nil
	}

	var cache *aicache.Cache
	var breaker *limiter.Breaker
	if cfg.Review.CacheURL != "" {
		cache, err = aicache.New(cfg.Review.CacheURL, 0)
		if err != nil {
			log.Warn().Err(err).Msg("review cache unavailable, continuing without")
			cache = nil
		} else {
			defer cache.Close()
		}
		breaker, err = limiter.New(limiter.Options{
			RedisURL:    cfg.Review.CacheURL,
			BaseBackoff: cfg.Review.BreakerBaseBackoff,
			MaxBackoff:  cfg.Review.BreakerMaxBackoff,
		})
		if err != nil {
			log.Warn().Err(err).Msg("provider breaker unavailable, continuing without")
			breaker = nil
		} else {
			defer breaker.Close()
		}
	}

	reviewer := NewReviewer(cfg.Providers, cache, breaker)

	if err := os.MkdirAll(cfg.Review.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create review output dir: %w", err)
	}
	outPath := filepath.Join(cfg.Review.OutputDir, fmt.Sprintf("review_%s.jsonl", time.Now().Format("20060102_150405")))
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create review output: %w", err)
	}
	defer out.Close()

	reviewed, failed := 0, 0
	for i, g := range groups {
		rec, err := reviewer.ReviewGroup(ctx, g)
		if err != nil {
			failed++
			log.Error().Err(err).Int("group", i+1).Str("file", g.File).Msg("group review failed")
			continue
		}
		line, err := json.Marshal(rec)
		if err != nil {
			failed++
			continue
		}
		if _, err := out.Write(append(line, '\n')); err != nil {
			return outPath, fmt.Errorf("append review record: %w", err)
		}
		reviewed++
		log.Info().Int("group", i+1).Int("of", len(groups)).Int("questions", len(g.Entries)).Msg("group reviewed")
	}

	log.Info().Int("reviewed", reviewed).Int("failed", failed).Str("output", outPath).Msg("review run complete")
	if reviewed == 0 && failed > 0 {
		return outPath, fmt.Errorf("all %d groups failed review", failed)
	}
	return outPath, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Apply folds a review JSONL back into every merged file it covers.
func Apply(reviewPath string, cfg config.Config) (ApplyCounts, error) {
	reviews, err := LoadRecords(reviewPath)
	if err != nil {
		return ApplyCounts{}, err
	}

	files, err := filepath.Glob(filepath.Join(cfg.Review.InputDir, cfg.Review.Pattern))
	if err != nil {
		return ApplyCounts{}, fmt.Errorf("glob merged files: %w", err)
	}

	var total ApplyCounts
	for _, f := range files {
		counts, err := ApplyToFile(f, "_deduped_and_reviewed", reviews, cfg.Review.ConfidenceThreshold)
		if err != nil {
			return total, err
		}
		total.QuestionsModified += counts.QuestionsModified
		total.SnippetsRemoved += counts.SnippetsRemoved
	}
	return total, nil
}
