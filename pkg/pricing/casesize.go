package pricing

import "strings"

// CaseSizeRule assigns a case size to sizes of styles with a given prefix.
// An empty StylePrefix matches every style; empty Sizes matches every size.
type CaseSizeRule struct {
	StylePrefix string
	Sizes       []string
	CaseSize    int
}

func (r CaseSizeRule) matches(style, size string) bool {
	if r.StylePrefix != "" && !strings.HasPrefix(style, strings.ToUpper(r.StylePrefix)) {
		return false
	}
	if len(r.Sizes) == 0 {
		return true
	}
	for _, s := range r.Sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// CaseSizeTable resolves case sizes the catalog did not supply. Rules are
// checked in order; the first match wins.
type CaseSizeTable struct {
	Rules   []CaseSizeRule
	Default int
}

// DefaultCaseSizes is the table used when none is configured.
var DefaultCaseSizes = CaseSizeTable{
	Rules: []CaseSizeRule{
		{StylePrefix: "PC61", Sizes: []string{"XS", "S", "M", "L", "XL"}, CaseSize: 72},
		{StylePrefix: "PC61", CaseSize: 36},
		{StylePrefix: "J790", Sizes: []string{"XS", "S", "M", "L", "XL", "2XL", "XXL"}, CaseSize: 24},
		{StylePrefix: "J790", CaseSize: 12},
		{StylePrefix: "C112", CaseSize: 144},
		{Sizes: []string{"OSFA", "OS", "ONE SIZE"}, CaseSize: 144},
	},
	Default: 24,
}

// Lookup returns the case size of style and size.
func (t CaseSizeTable) Lookup(style, size string) int {
	style = strings.ToUpper(strings.TrimSpace(style))
	size = strings.TrimSpace(size)
	for _, rule := range t.Rules {
		if rule.matches(style, size) {
			return rule.CaseSize
		}
	}
	return t.Default
}
