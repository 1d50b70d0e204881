package eventvec

import "strings"

// RelationFamilyCount is the fixed number of relation families, including
// the "other" catch-all.
const RelationFamilyCount = 12

// relationFamily pairs a family name with its case-insensitive keyword
// list, matched in the declared priority order: first match wins.
type relationFamily struct {
	name     string
	keywords []string
}

// Families is the fixed, ordered table of relation families. Order is
// significant and preserved exactly: a label matching keywords from an
// earlier family is classified there even if a later family's keywords
// would also match.
var Families = []relationFamily{
	{"causeEffect", []string{"caused", "resulted in", "led to", "triggered", "due to"}},
	{"partnership", []string{"partnered", "partnership", "collaborat", "joint venture", "alliance"}},
	{"acquisitionInvestment", []string{"acquired", "acquisition", "invested", "funding", "merger", "buyout"}},
	{"competition", []string{"competes", "competitor", "rival", "versus", "outpac"}},
	{"regulationLegal", []string{"regulat", "lawsuit", "sued", "legal", "compliance", "antitrust"}},
	{"securityIncident", []string{"breach", "hacked", "vulnerability", "exploit", "ransomware", "leaked"}},
	{"pricingCost", []string{"priced", "pricing", "cost", "discount", "fee increase"}},
	{"performanceBenchmark", []string{"benchmark", "outperform", "throughput", "latency", "accuracy"}},
	{"hiringLayoffs", []string{"hired", "layoff", "fired", "appointed", "resign"}},
	{"productLaunch", []string{"launched", "released", "unveiled", "announced", "debut"}},
	{"association", []string{"associated with", "related to", "linked to", "affiliated"}},
	{"other", nil},
}

// Classify returns the index of the first family whose keyword list
// matches label (case-insensitively), defaulting to the "other" index.
func Classify(label string) int {
	lower := strings.ToLower(label)
	for i, f := range Families {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				return i
			}
		}
	}
	return len(Families) - 1
}

// OneHot returns a length RelationFamilyCount vector with exactly one 1.0
// at the classified family's index.
func OneHot(label string) []float64 {
	v := make([]float64, RelationFamilyCount)
	v[Classify(label)] = 1.0
	return v
}

// FamilyName returns the family name for a label, as classified by
// Classify.
func FamilyName(label string) string {
	return Families[Classify(label)].name
}
