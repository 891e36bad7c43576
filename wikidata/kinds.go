package wikidata

// The kind table maps each supported kind to the Wikidata class its members
// declare through P31 (instance of) claims.
const (
	KindPerson       Kind = "person"       // Q5: human
	KindOrganization Kind = "organization" // Q43229: organization
	KindLocation     Kind = "location"     // Q17334923: physical location
	KindEvent        Kind = "event"        // Q1656682: event
	KindCreativeWork Kind = "creative_work" // Q17537576: creative work
)

// kindClasses maps each kind to its declared class QID.
var kindClasses = map[Kind]string{
	KindPerson:       "Q5",
	KindOrganization: "Q43229",
	KindLocation:     "Q17334923",
	KindEvent:        "Q1656682",
	KindCreativeWork: "Q17537576",
}

// defaultProperties is the curated per-kind enrichment property set,
// matching what the downstream OSINT consumers expect per entity type.
var defaultProperties = map[Kind][]string{
	KindPerson: {
		"P569",  // date of birth
		"P570",  // date of death
		"P27",   // country of citizenship
		"P106",  // occupation
		"P18",   // image
		"P39",   // position held
		"P1449", // nickname
	},
	KindOrganization: {
		"P17",   // country
		"P112",  // founder
		"P571",  // inception date
		"P18",   // image
		"P154",  // logo
		"P1454", // legal form
	},
	KindLocation: {
		"P625", // coordinates
		"P17",  // country
		"P18",  // image
		"P421", // time zone
	},
	KindEvent: {
		"P585", // point in time
		"P17",  // country
		"P276", // location
		"P31",  // instance of
		"P18",  // image
	},
	KindCreativeWork: {
		"P50",  // author
		"P577", // publication date
		"P136", // genre
		"P921", // main subject
		"P18",  // image
	},
}

// KnownKind reports whether name is a supported kind.
func KnownKind(name string) bool {
	_, ok := kindClasses[Kind(name)]
	return ok
}

// Kinds returns all supported kind names.
func Kinds() []Kind {
	return []Kind{KindPerson, KindOrganization, KindLocation, KindEvent, KindCreativeWork}
}

// ClassOf returns the declared class QID for a kind.
func ClassOf(kind Kind) string {
	return kindClasses[kind]
}

// PropertiesFor returns the curated enrichment property set for a kind.
// The returned slice is shared; callers must not mutate it.
func PropertiesFor(kind Kind) []string {
	return defaultProperties[kind]
}
