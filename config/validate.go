package config

import (
	"github.com/osintlab/WDX/errors"
	"github.com/osintlab/WDX/sink"
	"github.com/osintlab/WDX/wikidata"
)

// Validate rejects configurations that would fail mid-run: unknown kinds,
// unknown output formats, enrich kinds outside the extracted set.
func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		return errors.New("config: at least one language is required")
	}
	if len(c.Kinds) == 0 {
		return errors.New("config: at least one kind is required")
	}

	extracted := make(map[string]bool, len(c.Kinds))
	for _, k := range c.Kinds {
		if !wikidata.KnownKind(k) {
			return errors.Newf("config: unknown kind %q", k)
		}
		extracted[k] = true
	}

	for _, k := range c.EnrichKinds {
		if !wikidata.KnownKind(k) {
			return errors.Newf("config: unknown enrich kind %q", k)
		}
		if !extracted[k] {
			return errors.Newf("config: enrich kind %q is not in the extracted kinds", k)
		}
	}

	for _, f := range c.Output.Formats {
		switch f {
		case sink.FormatJSONL, sink.FormatMsgpack, sink.FormatCSV:
		default:
			return errors.Newf("config: unknown output format %q", f)
		}
	}

	if c.Pipeline.MaxBlockMB < 0 {
		return errors.New("config: pipeline.max_block_mb must not be negative")
	}
	return nil
}

// EnrichKindList converts the configured enrich kinds to typed kinds.
func (c *Config) EnrichKindList() []wikidata.Kind {
	kinds := make([]wikidata.Kind, 0, len(c.EnrichKinds))
	for _, k := range c.EnrichKinds {
		kinds = append(kinds, wikidata.Kind(k))
	}
	return kinds
}

// KindList converts the configured kinds to typed kinds, preserving
// precedence order.
func (c *Config) KindList() []wikidata.Kind {
	kinds := make([]wikidata.Kind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		kinds = append(kinds, wikidata.Kind(k))
	}
	return kinds
}
