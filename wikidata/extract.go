package wikidata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Warning records a sub-structure of an otherwise well-formed block that
// could not be parsed. Warnings never fail the run; the entity is emitted
// with whatever fields were successfully extracted.
type Warning struct {
	EntityID string
	Field    string
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.EntityID, w.Field, w.Reason)
}

// Extractor parses accepted blocks into canonical entities. Languages
// outside the configured target set are ignored per-language; claims are
// flattened only for the kind's configured property set.
type Extractor struct {
	languages  map[string]bool
	properties map[Kind][]string
}

// NewExtractor builds an extractor for the given target languages and
// per-kind property sets. A nil properties map uses the curated defaults.
func NewExtractor(languages []string, properties map[Kind][]string) *Extractor {
	if properties == nil {
		properties = defaultProperties
	}
	langs := make(map[string]bool, len(languages))
	for _, l := range languages {
		langs[l] = true
	}
	return &Extractor{languages: langs, properties: properties}
}

// Wire shapes of the dump format. Only the fields the pipeline consumes are
// declared; everything else in a block is skipped by the decoder.
type rawTerm struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type rawDatavalue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawSnak struct {
	Snaktype  string        `json:"snaktype"`
	Datatype  string        `json:"datatype"`
	Datavalue *rawDatavalue `json:"datavalue"`
}

type rawStatement struct {
	Mainsnak rawSnak `json:"mainsnak"`
}

type rawEntity struct {
	ID           string                    `json:"id"`
	Labels       map[string]rawTerm        `json:"labels"`
	Descriptions map[string]rawTerm        `json:"descriptions"`
	Aliases      map[string][]rawTerm      `json:"aliases"`
	Claims       map[string][]rawStatement `json:"claims"`
}

// Extract parses a block that already passed the kind filter. A nil entity
// means the block could not be attributed to a source id at all and is
// dropped; that case still only produces warnings, never a run failure.
func (e *Extractor) Extract(block []byte, kind Kind) (*Entity, []Warning) {
	var raw rawEntity
	if err := json.Unmarshal(block, &raw); err != nil {
		return nil, []Warning{{Field: "block", Reason: err.Error()}}
	}
	if raw.ID == "" {
		return nil, []Warning{{Field: "id", Reason: "missing or empty entity id"}}
	}

	entity := &Entity{ID: raw.ID, Kind: kind}
	var warnings []Warning

	for lang, term := range raw.Labels {
		if !e.languages[lang] {
			continue
		}
		if term.Value == "" {
			warnings = append(warnings, Warning{EntityID: raw.ID, Field: "labels." + lang, Reason: "empty label value"})
			continue
		}
		if entity.Labels == nil {
			entity.Labels = make(map[string]string)
		}
		entity.Labels[lang] = term.Value
	}

	for lang, term := range raw.Descriptions {
		if !e.languages[lang] || term.Value == "" {
			continue
		}
		if entity.Descriptions == nil {
			entity.Descriptions = make(map[string]string)
		}
		entity.Descriptions[lang] = term.Value
	}

	for lang, terms := range raw.Aliases {
		if !e.languages[lang] {
			continue
		}
		seen := make(map[string]bool, len(terms))
		var names []string
		for _, term := range terms {
			if term.Value == "" || seen[term.Value] {
				continue
			}
			seen[term.Value] = true
			names = append(names, term.Value)
		}
		if len(names) > 0 {
			if entity.Aliases == nil {
				entity.Aliases = make(map[string][]string)
			}
			entity.Aliases[lang] = names
		}
	}

	for _, prop := range e.properties[kind] {
		statements, ok := raw.Claims[prop]
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(statements))
		for _, st := range statements {
			claim, err := flattenSnak(prop, st.Mainsnak)
			if err != nil {
				warnings = append(warnings, Warning{EntityID: raw.ID, Field: "claims." + prop, Reason: err.Error()})
				continue
			}
			if claim == nil || seen[claim.Value] {
				continue
			}
			seen[claim.Value] = true
			entity.Claims = append(entity.Claims, *claim)
		}
	}

	return entity, warnings
}

// flattenSnak reduces one statement's main snak to a (type, value) pair.
// Returns nil for snaks that carry no value ("novalue"/"somevalue"), which
// is normal dump content, not a warning.
func flattenSnak(prop string, snak rawSnak) (*Claim, error) {
	if snak.Snaktype != "value" || snak.Datavalue == nil {
		return nil, nil
	}
	dv := snak.Datavalue

	switch dv.Type {
	case "string":
		var s string
		if err := json.Unmarshal(dv.Value, &s); err != nil {
			return nil, fmt.Errorf("string datavalue: %w", err)
		}
		typ := ClaimString
		if snak.Datatype == "commonsMedia" {
			typ = ClaimCommonsMedia
		}
		return &Claim{Property: prop, Type: typ, Value: s}, nil

	case "wikibase-entityid":
		var v struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("entityid datavalue: %w", err)
		}
		if v.ID == "" {
			return nil, fmt.Errorf("entityid datavalue missing id")
		}
		return &Claim{Property: prop, Type: ClaimEntityID, Value: v.ID}, nil

	case "time":
		var v struct {
			Time string `json:"time"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("time datavalue: %w", err)
		}
		// The dump prefixes timestamps with an explicit sign: +1879-03-14...
		return &Claim{Property: prop, Type: ClaimTime, Value: strings.TrimPrefix(v.Time, "+")}, nil

	case "quantity":
		var v struct {
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("quantity datavalue: %w", err)
		}
		return &Claim{Property: prop, Type: ClaimQuantity, Value: strings.TrimPrefix(v.Amount, "+")}, nil

	case "globecoordinate":
		var v struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("globecoordinate datavalue: %w", err)
		}
		return &Claim{Property: prop, Type: ClaimCoordinate, Value: fmt.Sprintf("%g,%g", v.Latitude, v.Longitude)}, nil

	case "monolingualtext":
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(dv.Value, &v); err != nil {
			return nil, fmt.Errorf("monolingualtext datavalue: %w", err)
		}
		return &Claim{Property: prop, Type: ClaimString, Value: v.Text}, nil

	default:
		return nil, fmt.Errorf("unsupported datavalue type %q", dv.Type)
	}
}
