package config

import "runtime"

// Config holds engine-wide ambient settings (in-memory representation).
// Per-request simulation parameters (scenario count, horizon, seed)
// travel in the request itself; this struct only carries the defaults
// and operational knobs the server applies when a request leaves them
// unset.
type Config struct {
	// MaxWorkers caps the scenario worker pool. 0 means GOMAXPROCS.
	MaxWorkers int `json:"max_workers"`

	// DefaultScenarios is used when a request omits n_scenarios.
	DefaultScenarios int `json:"default_scenarios"`

	// SensitivityMaxScenarios caps the down-sampled reruns a
	// sensitivity sweep performs per step.
	SensitivityMaxScenarios int `json:"sensitivity_max_scenarios"`

	// HistogramBins is the default bin count for mode estimation. No code
	// reads it; stats.Summarize always estimates the mode with 50 bins.
	HistogramBins int `json:"histogram_bins"`

	// StreamingCellLimit is a tensor size (scenarios x variables x steps)
	// threshold for streaming reduction. No code reads it; each operation
	// sets scenario.Config.Streaming itself.
	StreamingCellLimit int64 `json:"streaming_cell_limit"`

	// RequestTimeoutSeconds bounds a single HTTP request's simulation
	// time before the context cancels it. 0 disables the timeout.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		MaxWorkers:              runtime.GOMAXPROCS(0),
		DefaultScenarios:        10000,
		SensitivityMaxScenarios: 1000,
		HistogramBins:           50,
		StreamingCellLimit:      64 << 20,
		RequestTimeoutSeconds:   120,
	}
}
