package models

import "strings"

var countryAliases = map[string]string{
	"usa":                      "United States",
	"us":                       "United States",
	"u.s.":                     "United States",
	"u.s.a.":                   "United States",
	"united states of america": "United States",
	"america":                  "United States",
	"uk":                       "United Kingdom",
	"u.k.":                     "United Kingdom",
	"great britain":            "United Kingdom",
	"britain":                  "United Kingdom",
	"england":                  "United Kingdom",
	"uae":                      "United Arab Emirates",
	"u.a.e.":                   "United Arab Emirates",
	"the netherlands":          "Netherlands",
	"holland":                  "Netherlands",
	"south korea":              "South Korea",
	"republic of korea":        "South Korea",
	"czechia":                  "Czech Republic",
}

// NormalizeCountry maps common abbreviations and alternative spellings to a
// single display name. Unknown values are only trimmed.
func NormalizeCountry(country string) string {
	trimmed := strings.TrimSpace(country)
	if canonical, ok := countryAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
