package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// SourceConfig describes where source documents live.
// Root may be a filesystem path or an s3:// prefix.
type SourceConfig struct {
	Root      string
	Year      string
	Companies []string
}

// DetectConfig controls the offset detection pipeline.
type DetectConfig struct {
	OutputDir     string
	NumSamples    int
	SkipFirst     int
	RenderDPI     int
	Concurrency   int
	RenderTimeout time.Duration
	MaxOffset     int
}

// OCRConfig controls the tesseract recognizer.
type OCRConfig struct {
	Binary        string
	Lang          string
	MinConfidence float64
	Timeout       time.Duration
}

// ProviderModels defines the model pair for a provider.
type ProviderModels struct {
	Primary   string
	Secondary string
}

// ProvidersConfig defines engines and models per provider.
type ProvidersConfig struct {
	PrimaryEngine   string // "openai"|"anthropic"
	SecondaryEngine string // "anthropic"|"openai"
	OpenAI          ProviderModels
	Anthropic       ProviderModels
	RequestTimeout  time.Duration
}

// ReviewConfig controls the cross-question snippet review workflow.
type ReviewConfig struct {
	InputDir            string
	Pattern             string
	OutputDir           string
	ConfidenceThreshold float64
	SkipPlaceholder     bool
	Limit               int
	CacheURL            string // redis URL, empty disables response caching
	BreakerBaseBackoff  time.Duration
	BreakerMaxBackoff   time.Duration
}

// StorageConfig holds S3 connectivity for remote sources and evidence upload.
type StorageConfig struct {
	Bucket          string
	EvidencePrefix  string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	SourcePassword  string // decryption password for encrypted documents at rest
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Source  SourceConfig
	Detect  DetectConfig
	OCR     OCRConfig

	Providers ProvidersConfig
	Review    ReviewConfig
	Storage   StorageConfig

	MetricsPort string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pagealign.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pagealign",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Source = SourceConfig{
		Root:      getEnv("SOURCE_ROOT", "public/source_documents"),
		Year:      getEnv("SOURCE_YEAR", "2024"),
		Companies: parseList(getEnv("SOURCE_COMPANIES", "")),
	}

	cfg.Detect = DetectConfig{
		OutputDir:     getEnv("DETECT_OUTPUT_DIR", "output"),
		NumSamples:    parseInt(getEnv("DETECT_NUM_SAMPLES", "3"), 3),
		SkipFirst:     parseInt(getEnv("DETECT_SKIP_FIRST", "5"), 5),
		RenderDPI:     parseInt(getEnv("DETECT_RENDER_DPI", "200"), 200),
		Concurrency:   parseInt(getEnv("DETECT_CONCURRENCY", "4"), 4),
		RenderTimeout: parseDuration(getEnv("DETECT_RENDER_TIMEOUT", "60s"), 60*time.Second),
		MaxOffset:     parseInt(getEnv("DETECT_MAX_OFFSET", "50"), 50),
	}

	cfg.OCR = OCRConfig{
		Binary:        getEnv("OCR_BINARY", "tesseract"),
		Lang:          getEnv("OCR_LANG", "eng"),
		MinConfidence: parseFloat(getEnv("OCR_MIN_CONFIDENCE", "50"), 50),
		Timeout:       parseDuration(getEnv("OCR_TIMEOUT", "30s"), 30*time.Second),
	}

	cfg.Providers = ProvidersConfig{
		PrimaryEngine:   getEnv("PRIMARY_ENGINE", "openai"),
		SecondaryEngine: getEnv("SECONDARY_ENGINE", "anthropic"),
		OpenAI: ProviderModels{
			Primary:   getEnv("OPENAI_PRIMARY_MODEL", "gpt-4.1"),
			Secondary: getEnv("OPENAI_SECONDARY_MODEL", "gpt-4o"),
		},
		Anthropic: ProviderModels{
			Primary:   getEnv("ANTHROPIC_PRIMARY_MODEL", "claude-3-5-sonnet"),
			Secondary: getEnv("ANTHROPIC_SECONDARY_MODEL", "claude-3-opus"),
		},
		RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "60s"), 60*time.Second),
	}

	cfg.Review = ReviewConfig{
		InputDir:            getEnv("REVIEW_INPUT_DIR", "results/merged"),
		Pattern:             getEnv("REVIEW_PATTERN", "*_deduped.json"),
		OutputDir:           getEnv("REVIEW_OUTPUT_DIR", "results/review"),
		ConfidenceThreshold: parseFloat(getEnv("REVIEW_CONFIDENCE_THRESHOLD", "0"), 0),
		SkipPlaceholder:     parseBool(getEnv("REVIEW_SKIP_PLACEHOLDER", "true")),
		Limit:               parseInt(getEnv("REVIEW_LIMIT", "0"), 0),
		CacheURL:            getEnv("REVIEW_CACHE_REDIS_URL", ""),
		BreakerBaseBackoff:  parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
		BreakerMaxBackoff:   parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Bucket:          getEnv("S3_BUCKET", ""),
		EvidencePrefix:  getEnv("S3_EVIDENCE_PREFIX", "evidence"),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("AWS_REGION", ""),
		SourcePassword:  getEnv("SOURCE_DOC_PASSWORD", ""),
	}

	cfg.MetricsPort = getEnv("METRICS_PORT", "")

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
