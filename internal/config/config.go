// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file; ":memory:" keeps everything in RAM.
	DBPath string `koanf:"db_path"`

	// EvalQueueSize bounds the in-memory evaluation job queue.
	EvalQueueSize int `koanf:"eval_queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// JudgeURL is the endpoint of the external judgment service. Empty
	// disables the judge path; judge-v1 evaluations then fail fast.
	JudgeURL string `koanf:"judge_url"`

	// JudgeTimeoutMS bounds each judge call.
	JudgeTimeoutMS int `koanf:"judge_timeout_ms"`

	// CacheTTLSeconds bounds entries in the evaluation output cache.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheMaxSize caps the evaluation output cache.
	CacheMaxSize int `koanf:"cache_max_size"`

	// MaxFollowUps caps follow-up prompts per section beyond the
	// initial question.
	MaxFollowUps int `koanf:"max_followups"`

	// FollowUpBudget is the soft per-section follow-up budget; beyond
	// it, only unmet coverage keeps a section open.
	FollowUpBudget int `koanf:"followup_budget"`
}

// New creates a Config with defaults. Context is reserved for future
// use (e.g., loading from a remote source) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		DBPath:          "parley.db",
		EvalQueueSize:   1024,
		WorkerCount:     runtime.NumCPU(),
		JudgeURL:        "",
		JudgeTimeoutMS:  30_000,
		CacheTTLSeconds: 900,
		CacheMaxSize:    10_000,
		MaxFollowUps:    4,
		FollowUpBudget:  2,
	}
	return c
}
