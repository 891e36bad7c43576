package wikidata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliasRowsLabelIsPrimary(t *testing.T) {
	e := &Entity{
		ID:      "Q23",
		Kind:    KindPerson,
		Labels:  map[string]string{"en": "George Washington"},
		Aliases: map[string][]string{"en": {"President Washington", "G. Washington"}},
	}

	rows := e.AliasRows()
	assert.Equal(t, []AliasRow{
		{ID: "Q23", Language: "en", Name: "George Washington", Primary: true},
		{ID: "Q23", Language: "en", Name: "President Washington", Primary: false},
		{ID: "Q23", Language: "en", Name: "G. Washington", Primary: false},
	}, rows)
}

func TestAliasRowsDedupWithinLanguage(t *testing.T) {
	// An alias identical to the label collapses into the primary row.
	e := &Entity{
		ID:      "Q64",
		Labels:  map[string]string{"en": "Berlin", "de": "Berlin"},
		Aliases: map[string][]string{"en": {"Berlin", "Berlin, Germany"}},
	}

	rows := e.AliasRows()
	assert.Equal(t, []AliasRow{
		{ID: "Q64", Language: "de", Name: "Berlin", Primary: true},
		{ID: "Q64", Language: "en", Name: "Berlin", Primary: true},
		{ID: "Q64", Language: "en", Name: "Berlin, Germany", Primary: false},
	}, rows)
}

func TestAliasRowsAliasOnlyLanguage(t *testing.T) {
	e := &Entity{
		ID:      "Q90",
		Aliases: map[string][]string{"fr": {"Ville Lumière"}},
	}

	rows := e.AliasRows()
	assert.Equal(t, []AliasRow{
		{ID: "Q90", Language: "fr", Name: "Ville Lumière", Primary: false},
	}, rows)
}

func TestAliasRowsEmptyEntity(t *testing.T) {
	e := &Entity{ID: "Q1"}
	assert.Empty(t, e.AliasRows())
}

func TestKindTable(t *testing.T) {
	assert.True(t, KnownKind("person"))
	assert.True(t, KnownKind("creative_work"))
	assert.False(t, KnownKind("starship"))

	assert.Equal(t, "Q5", ClassOf(KindPerson))
	assert.Contains(t, PropertiesFor(KindPerson), "P569")
	assert.Contains(t, PropertiesFor(KindLocation), "P625")
}
