package wikidata

import (
	"github.com/tidwall/gjson"
)

// instanceOfPath probes only the P31 class declarations of a block. gjson
// walks the raw bytes without building a document, which keeps rejection —
// the common case by far — cheap.
const instanceOfPath = "claims.P31.#.mainsnak.datavalue.value.id"

// Classifier classifies raw entity blocks against a fixed set of accepted
// kinds. The kind set is configuration, frozen at construction.
type Classifier struct {
	kinds []Kind
	class map[Kind]string
}

// NewClassifier builds a classifier for the given kinds. Order matters: a
// block declaring several matching classes is classified as the first
// configured kind that matches, so the operator's kind list doubles as a
// precedence list.
func NewClassifier(kinds []Kind) *Classifier {
	c := &Classifier{class: make(map[Kind]string, len(kinds))}
	for _, k := range kinds {
		if qid, ok := kindClasses[k]; ok {
			c.kinds = append(c.kinds, k)
			c.class[k] = qid
		}
	}
	return c
}

// Classify returns the kind of a raw block, or false if the block matches
// none of the configured kinds. Rejection is not an error.
func (c *Classifier) Classify(block []byte) (Kind, bool) {
	declared := gjson.GetBytes(block, instanceOfPath)
	if !declared.Exists() {
		return "", false
	}

	for _, kind := range c.kinds {
		qid := c.class[kind]
		matched := false
		declared.ForEach(func(_, value gjson.Result) bool {
			if value.Str == qid {
				matched = true
				return false
			}
			return true
		})
		if matched {
			return kind, true
		}
	}
	return "", false
}
