package audit

import (
	"fmt"
	"sort"
	"strings"
)

// DOMSignals holds DOM-derived counts captured once the page has settled.
type DOMSignals struct {
	H1Count               int  `json:"h1_count"`
	SchemaCount           int  `json:"schema_count"`
	MissingAlts           int  `json:"missing_alts"`
	TitleLength           int  `json:"title_length"`
	MetaDescriptionLength int  `json:"meta_description_length"`
	JSONLDPresent         bool `json:"jsonld_present"`
}

// Item is one opaque entry from an audit's details table.
type Item map[string]any

// AuditDetails is the subset of an audit's details payload the pipeline reads.
type AuditDetails struct {
	Items               []Item         `json:"items,omitempty"`
	OverallSavingsBytes *float64       `json:"overallSavingsBytes,omitempty"`
	Chains              map[string]any `json:"chains,omitempty"`
}

// AuditRecord is a single audit computed by the audit engine.
type AuditRecord struct {
	Score        *float64      `json:"score"`
	NumericValue *float64      `json:"numericValue,omitempty"`
	Details      *AuditDetails `json:"details,omitempty"`
}

// RawAuditResult maps audit identifiers to records. A missing key means the
// engine did not compute that audit for this run.
type RawAuditResult map[string]AuditRecord

// Lookup returns the record for id and whether the engine produced it.
func (r RawAuditResult) Lookup(id string) (AuditRecord, bool) {
	if r == nil {
		return AuditRecord{}, false
	}
	rec, ok := r[id]
	return rec, ok
}

// Endpoint locates a running browser's remote debugging channel.
type Endpoint struct {
	Port         int    `json:"port"`
	WebSocketURL string `json:"webSocketDebuggerUrl"`
	Browser      string `json:"browser,omitempty"`
}

// Category is an audit-engine category.
type Category string

// Supported audit categories.
const (
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryAccessibility Category = "accessibility"
)

// DefaultCategories is used when no categories are configured.
var DefaultCategories = []Category{CategoryPerformance, CategorySEO, CategoryAccessibility}

// ParseCategories validates and de-duplicates raw category names. The result
// is sorted so the engine invocation is stable across runs.
func ParseCategories(raw []string) ([]Category, error) {
	if len(raw) == 0 {
		return append([]Category(nil), DefaultCategories...), nil
	}
	seen := make(map[Category]struct{}, len(raw))
	out := make([]Category, 0, len(raw))
	for _, name := range raw {
		c := Category(strings.ToLower(strings.TrimSpace(name)))
		switch c {
		case CategoryPerformance, CategorySEO, CategoryAccessibility:
		default:
			return nil, fmt.Errorf("unsupported audit category %q", name)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// JoinCategories renders categories as a comma separated list.
func JoinCategories(categories []Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
