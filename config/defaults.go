package config

import (
	"runtime"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("languages", []string{"en"})
	v.SetDefault("kinds", []string{"person", "organization", "location", "event", "creative_work"})
	v.SetDefault("enrich_kinds", []string{})

	// Output defaults
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.formats", []string{"jsonl", "msgpack", "csv"})

	// Cache defaults
	v.SetDefault("cache.path", "wdx-cache.db")

	// Lookup defaults
	v.SetDefault("lookup.endpoint", "https://www.wikidata.org/w/api.php")
	v.SetDefault("lookup.timeout_seconds", 30)
	v.SetDefault("lookup.retries", 2)
	v.SetDefault("lookup.rate_per_second", 5.0) // polite ceiling against upstream rate limiting
	v.SetDefault("lookup.fetch_images", false)
	v.SetDefault("lookup.image_width", 64)

	// Pipeline defaults
	v.SetDefault("pipeline.workers", runtime.NumCPU())
	v.SetDefault("pipeline.queue_depth", 256)
	v.SetDefault("pipeline.max_block_mb", 16)
	v.SetDefault("pipeline.flush_every", 1000)
	v.SetDefault("pipeline.report_every", 100000)
}
