package migration

import "strings"

// RegionMatcher maps a canonicalized area name to a coarse region name.
// The second result is false for low-confidence matches (nothing in the
// lexicon fired), in which case the caller falls back to the configured
// default region and the match is counted for the report.
type RegionMatcher func(areaKey string) (region string, ok bool)

// regionLexicon maps locality keywords to regions. Substring matching
// against canonicalized area names; the source data has no authoritative
// region field, so this is a curated best-effort table, not a geocoder.
var regionLexicon = []struct {
	keyword string
	region  string
}{
	{"new cairo", "East Cairo"},
	{"تجمع", "East Cairo"},
	{"madinaty", "East Cairo"},
	{"rehab", "East Cairo"},
	{"shorouk", "East Cairo"},
	{"mostakbal", "East Cairo"},
	{"new capital", "East Cairo"},
	{"october", "West Cairo"},
	{"اكتوبر", "West Cairo"},
	{"zayed", "West Cairo"},
	{"زايد", "West Cairo"},
	{"giza", "West Cairo"},
	{"maadi", "South Cairo"},
	{"katameya", "South Cairo"},
	{"helwan", "South Cairo"},
	{"sokhna", "Red Sea"},
	{"gouna", "Red Sea"},
	{"hurghada", "Red Sea"},
	{"sahel", "North Coast"},
	{"alamein", "North Coast"},
	{"alexandria", "North Coast"},
	{"الساحل", "North Coast"},
}

// MatchRegion is the default RegionMatcher backed by regionLexicon.
// It expects its input to be already canonicalized.
func MatchRegion(areaKey string) (string, bool) {
	for _, entry := range regionLexicon {
		if strings.Contains(areaKey, entry.keyword) {
			return entry.region, true
		}
	}
	return "", false
}
