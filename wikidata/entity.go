// Package wikidata holds the canonical entity model and the two cheap
// per-block stages of the pipeline: kind classification and field
// extraction.
package wikidata

import "sort"

// Kind is the coarse semantic category used to filter entities.
type Kind string

// Entity is the canonical unit of output. Label and alias strings are kept
// byte-for-byte as they appear in the dump: name matching downstream is
// exact, so no trimming or case folding happens here.
type Entity struct {
	// ID is the stable source identifier (e.g. "Q5879"). Never generated
	// locally; non-empty on every emitted entity.
	ID   string `json:"id" msgpack:"id"`
	Kind Kind   `json:"kind" msgpack:"kind"`

	// Labels maps language code to the single primary label.
	Labels map[string]string `json:"labels,omitempty" msgpack:"labels,omitempty"`

	// Descriptions maps language code to the short description line.
	Descriptions map[string]string `json:"descriptions,omitempty" msgpack:"descriptions,omitempty"`

	// Aliases maps language code to alternate names, deduplicated within
	// each language.
	Aliases map[string][]string `json:"aliases,omitempty" msgpack:"aliases,omitempty"`

	// Claims carries the flattened raw claim values for the kind's
	// configured property set. Populated by the extractor, consumed by the
	// resolver, absent from serialized output.
	Claims []Claim `json:"-" msgpack:"-"`

	// Properties maps property id to resolved values. Only populated for
	// the configured enrichment property set; unresolved properties are
	// omitted, never stored empty.
	Properties map[string][]string `json:"properties,omitempty" msgpack:"properties,omitempty"`
}

// ClaimType describes what a flattened claim value denotes.
type ClaimType string

const (
	// ClaimString is a plain string value, already in final form.
	ClaimString ClaimType = "string"
	// ClaimEntityID references another entity ("Q30"); the resolver may
	// replace it with that entity's label.
	ClaimEntityID ClaimType = "wikibase-entityid"
	// ClaimTime is a normalized timestamp ("1879-03-14T00:00:00Z").
	ClaimTime ClaimType = "time"
	// ClaimQuantity is a normalized numeric amount.
	ClaimQuantity ClaimType = "quantity"
	// ClaimCoordinate is "lat,lon".
	ClaimCoordinate ClaimType = "globecoordinate"
	// ClaimCommonsMedia is a Wikimedia Commons filename; the resolver
	// derives a thumbnail URL and may fetch the image itself.
	ClaimCommonsMedia ClaimType = "commonsmedia"
)

// Claim is one flattened statement value for a configured property.
type Claim struct {
	Property string
	Type     ClaimType
	Value    string
}

// AliasRow is one flattened (id, language, name, is_primary) tuple for the
// alias CSV.
type AliasRow struct {
	ID       string
	Language string
	Name     string
	Primary  bool
}

// AliasRows flattens the entity's labels and aliases into CSV rows. Within
// the entity every (language, name) pair appears once; the primary label
// wins over an identical alias. Entity IDs are unique across the dump, so
// per-entity dedup here is global dedup of (id, language, name).
func (e *Entity) AliasRows() []AliasRow {
	langs := make([]string, 0, len(e.Labels)+len(e.Aliases))
	seenLang := make(map[string]bool)
	for lang := range e.Labels {
		if !seenLang[lang] {
			seenLang[lang] = true
			langs = append(langs, lang)
		}
	}
	for lang := range e.Aliases {
		if !seenLang[lang] {
			seenLang[lang] = true
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)

	var rows []AliasRow
	for _, lang := range langs {
		seen := make(map[string]bool)
		if label, ok := e.Labels[lang]; ok && label != "" {
			seen[label] = true
			rows = append(rows, AliasRow{ID: e.ID, Language: lang, Name: label, Primary: true})
		}
		for _, alias := range e.Aliases[lang] {
			if alias == "" || seen[alias] {
				continue
			}
			seen[alias] = true
			rows = append(rows, AliasRow{ID: e.ID, Language: lang, Name: alias, Primary: false})
		}
	}
	return rows
}
