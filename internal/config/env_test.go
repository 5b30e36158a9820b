package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Detect.NumSamples)
	assert.Equal(t, 5, cfg.Detect.SkipFirst)
	assert.Equal(t, 200, cfg.Detect.RenderDPI)
	assert.Equal(t, 50, cfg.Detect.MaxOffset)
	assert.Equal(t, 60*time.Second, cfg.Detect.RenderTimeout)
	assert.Equal(t, "tesseract", cfg.OCR.Binary)
	assert.Equal(t, "eng", cfg.OCR.Lang)
	assert.Equal(t, 50.0, cfg.OCR.MinConfidence)
	assert.Equal(t, "openai", cfg.Providers.PrimaryEngine)
	assert.Equal(t, "anthropic", cfg.Providers.SecondaryEngine)
	assert.Equal(t, "*_deduped.json", cfg.Review.Pattern)
	assert.True(t, cfg.Review.SkipPlaceholder)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DETECT_NUM_SAMPLES", "5")
	t.Setenv("DETECT_SKIP_FIRST", "10")
	t.Setenv("SOURCE_COMPANIES", "acme, globex ,")
	t.Setenv("OCR_MIN_CONFIDENCE", "60.5")
	t.Setenv("DETECT_RENDER_TIMEOUT", "90s")
	t.Setenv("AXIOM_DATASET", "prod")

	cfg := FromEnv()
	assert.Equal(t, 5, cfg.Detect.NumSamples)
	assert.Equal(t, 10, cfg.Detect.SkipFirst)
	assert.Equal(t, []string{"acme", "globex"}, cfg.Source.Companies)
	assert.Equal(t, 60.5, cfg.OCR.MinConfidence)
	assert.Equal(t, 90*time.Second, cfg.Detect.RenderTimeout)
	assert.Equal(t, "prod_pagealign", cfg.Axiom.Dataset)
}

func TestFromEnvMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DETECT_NUM_SAMPLES", "three")
	t.Setenv("OCR_MIN_CONFIDENCE", "high")
	t.Setenv("DETECT_RENDER_TIMEOUT", "forever")

	cfg := FromEnv()
	assert.Equal(t, 3, cfg.Detect.NumSamples)
	assert.Equal(t, 50.0, cfg.OCR.MinConfidence)
	assert.Equal(t, 60*time.Second, cfg.Detect.RenderTimeout)
}
