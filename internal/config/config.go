package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Bearer auth is enforced only when set.
	APIKey string

	// OpenAI vision
	OpenAIAPIKey string
	OpenAIModel  string

	// PDF processing
	MaxPages        int // hard per-document page ceiling
	DefaultMaxPages int // request default when max_pages is omitted
	OutputDir       string

	// Worker pool
	WorkerCount   int // 0 means derive from CPU count
	WorkerFloor   int
	WorkerCeiling int

	// Response cache
	CachePath  string
	RecordAge  time.Duration
	SweepEvery time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Job state
	MaxQueueSize int
	JobTTL       time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		APIKey: os.Getenv("TOC_API_KEY"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-4.1-mini"),

		MaxPages:        envInt("PDF_MAX_PAGES", 20),
		DefaultMaxPages: envInt("DEFAULT_MAX_PAGES", 10),
		OutputDir:       envOr("PDF_OUTPUT_DIR", "toc"),

		WorkerCount:   envInt("WORKER_COUNT", 0),
		WorkerFloor:   envInt("WORKER_FLOOR", 1),
		WorkerCeiling: envInt("WORKER_CEILING", 8),

		CachePath:  envOr("CACHE_PATH", "toc_cache.sqlite"),
		RecordAge:  time.Duration(envInt("RECORD_AGE_MINUTES", 60)) * time.Minute,
		SweepEvery: envDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.DefaultMaxPages <= 0 || cfg.DefaultMaxPages > cfg.MaxPages {
		cfg.DefaultMaxPages = min(10, cfg.MaxPages)
	}
	if cfg.WorkerFloor <= 0 {
		cfg.WorkerFloor = 1
	}
	if cfg.WorkerCeiling < cfg.WorkerFloor {
		cfg.WorkerCeiling = cfg.WorkerFloor
	}
	if cfg.RecordAge <= 0 {
		cfg.RecordAge = time.Hour
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = 5 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// ResolveWorkers returns the worker-pool size. An explicit value wins;
// otherwise the count is derived from detected CPUs minus one (leaving
// headroom for the request path), clamped to [floor, ceiling] so hosts
// reporting misleading CPU counts don't over- or under-subscribe.
func ResolveWorkers(explicit, detected, floor, ceiling int) int {
	if floor < 1 {
		floor = 1
	}
	if ceiling < floor {
		ceiling = floor
	}
	if explicit > 0 {
		return explicit
	}
	w := detected - 1
	if w < floor {
		w = floor
	}
	if w > ceiling {
		w = ceiling
	}
	return w
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
