// Package config holds the extraction run configuration, loaded from
// wdx.toml with environment variable overrides.
package config

// Config represents the full WDX configuration
type Config struct {
	Languages   []string       `mapstructure:"languages" toml:"languages" json:"languages"`          // label/description/alias languages to keep
	Kinds       []string       `mapstructure:"kinds" toml:"kinds" json:"kinds"`                      // kinds to extract, in precedence order
	EnrichKinds []string       `mapstructure:"enrich_kinds" toml:"enrich_kinds" json:"enrich_kinds"` // kinds whose claims go through external lookups
	Output      OutputConfig   `mapstructure:"output" toml:"output" json:"output"`
	Cache       CacheConfig    `mapstructure:"cache" toml:"cache" json:"cache"`
	Lookup      LookupConfig   `mapstructure:"lookup" toml:"lookup" json:"lookup"`
	Pipeline    PipelineConfig `mapstructure:"pipeline" toml:"pipeline" json:"pipeline"`
}

// OutputConfig configures the sink artifacts
type OutputConfig struct {
	Dir     string   `mapstructure:"dir" toml:"dir" json:"dir"`
	Formats []string `mapstructure:"formats" toml:"formats" json:"formats"` // jsonl, msgpack, csv (empty = all)
}

// CacheConfig configures the persistent resolution cache
type CacheConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path"`
}

// LookupConfig configures the external resolution service
type LookupConfig struct {
	Endpoint       string  `mapstructure:"endpoint" toml:"endpoint" json:"endpoint"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
	Retries        int     `mapstructure:"retries" toml:"retries" json:"retries"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" toml:"rate_per_second" json:"rate_per_second"`
	FetchImages    bool    `mapstructure:"fetch_images" toml:"fetch_images" json:"fetch_images"`
	ImageWidth     int     `mapstructure:"image_width" toml:"image_width" json:"image_width"` // thumbnail width in pixels
}

// PipelineConfig configures concurrency and memory bounds
type PipelineConfig struct {
	Workers     int `mapstructure:"workers" toml:"workers" json:"workers"`                  // extraction/resolution workers (default: NumCPU)
	QueueDepth  int `mapstructure:"queue_depth" toml:"queue_depth" json:"queue_depth"`      // bounded channel capacity between stages
	MaxBlockMB  int `mapstructure:"max_block_mb" toml:"max_block_mb" json:"max_block_mb"`   // reject entity blocks larger than this
	FlushEvery  int `mapstructure:"flush_every" toml:"flush_every" json:"flush_every"`      // sink flush interval in records
	ReportEvery int `mapstructure:"report_every" toml:"report_every" json:"report_every"`   // progress log interval in records (0 = quiet)
}
