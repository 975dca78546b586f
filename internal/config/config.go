// Package config holds process-wide configuration, read once at startup.
// Flags default to environment variables, following the pattern of
// flag.StringVar(&x, "flag", os.Getenv("ENV"), "...") so the server is
// configurable identically via env (containers) or flags (local dev).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of recognized process-wide settings.
type Config struct {
	// Required upstream credentials, unless the corresponding back-end is
	// wired to an in-process stub for tests.
	SearchAPIKey string
	LLMAPIKey    string

	// HTTP surface.
	ListenPort int
	WebOrigin  string

	// Upstream endpoints.
	SearxURL   string
	LLMBaseURL string
	LLMModel   string

	// Parallel Searcher tunables (§4.3).
	SearchConcurrency int
	SearchTimeout     time.Duration
	MaxResultsPerQuery int

	// Page Extractor tunables (§4.4).
	FetchTimeout time.Duration

	// Bandit tunables (§4.8).
	PendingImpressionTimeout time.Duration

	// Synthesizer tunables (§4.10).
	SynthMaxSources int

	CacheDir string
	Verbose  bool
}

// Default returns a Config populated with the defaults named in spec.md §6.3
// and §4.3/§4.8's algorithmic defaults.
func Default() Config {
	return Config{
		ListenPort:               3001,
		WebOrigin:                "http://localhost:5173",
		SearchConcurrency:        5,
		SearchTimeout:            15 * time.Second,
		MaxResultsPerQuery:       10,
		FetchTimeout:             8 * time.Second,
		PendingImpressionTimeout: 25 * time.Second,
		SynthMaxSources:          8,
	}
}

// Load builds a Config from environment variables layered over Default().
// Explicit environment values always take precedence; unset variables leave
// the default in place.
func Load() Config {
	cfg := Default()
	ApplyEnv(&cfg)
	return cfg
}

// ApplyEnv overrides cfg fields with environment variables when present.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		cfg.SearchAPIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("LISTEN_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.ListenPort = n
		}
	}
	if v := os.Getenv("WEB_ORIGIN"); v != "" {
		cfg.WebOrigin = v
	}
	if v := os.Getenv("SEARX_URL"); v != "" {
		cfg.SearxURL = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("VERBOSE"))); v != "" {
		cfg.Verbose = v == "1" || v == "true" || v == "yes" || v == "on"
	}
	if v := os.Getenv("SEARCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchConcurrency = n
		}
	}
	if v := os.Getenv("SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SearchTimeout = d
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if v := os.Getenv("PENDING_IMPRESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PendingImpressionTimeout = d
		}
	}
}
