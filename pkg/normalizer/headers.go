package normalizer

import (
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// resolver extracts one candidate value for a logical field from a raw row.
type resolver struct {
	header string
	column int
}

func (r resolver) resolve(record []string) (string, bool) {
	if r.column < 0 || r.column >= len(record) {
		return "", false
	}
	value := CleanCell(record[r.column])
	return value, value != ""
}

// HeaderIndex holds, per logical field, the ordered resolvers derived from one
// header row: exact alias matches first, then normalized-key matches.
type HeaderIndex struct {
	headers   []string
	resolvers map[models.Field][]resolver
}

func NewHeaderIndex(header []string, cat Catalog) *HeaderIndex {
	cleaned := make([]string, len(header))
	exact := make(map[string]int, len(header))
	normalized := make(map[string][]int, len(header))
	for idx, h := range header {
		cleaned[idx] = CleanHeader(h)
		if isScaledColumn(cleaned[idx]) {
			continue
		}
		if _, ok := exact[cleaned[idx]]; !ok {
			exact[cleaned[idx]] = idx
		}
		key := normalizeKey(cleaned[idx])
		normalized[key] = append(normalized[key], idx)
	}

	index := &HeaderIndex{headers: cleaned, resolvers: make(map[models.Field][]resolver)}
	for field, aliases := range cat.Aliases {
		seen := make(map[int]struct{})
		var list []resolver
		add := func(col int) {
			if _, ok := seen[col]; ok {
				return
			}
			seen[col] = struct{}{}
			list = append(list, resolver{header: cleaned[col], column: col})
		}
		for _, alias := range aliases {
			if col, ok := exact[alias]; ok {
				add(col)
			}
		}
		for _, alias := range aliases {
			for _, col := range normalized[normalizeKey(alias)] {
				add(col)
			}
		}
		index.resolvers[field] = list
	}
	return index
}

// Columns reports which header resolved first for each field.
func (h *HeaderIndex) Columns() map[string]string {
	out := make(map[string]string, len(h.resolvers))
	for field, list := range h.resolvers {
		if len(list) > 0 {
			out[string(field)] = list[0].header
		}
	}
	return out
}

func (h *HeaderIndex) Row(record []string) Row {
	return Row{index: h, record: record}
}

// Row binds one raw record to its header index.
type Row struct {
	index  *HeaderIndex
	record []string
}

func (r Row) Candidates(field models.Field) []string {
	var out []string
	for _, res := range r.index.resolvers[field] {
		if value, ok := res.resolve(r.record); ok {
			out = append(out, value)
		}
	}
	return out
}

func (r Row) First(field models.Field) string {
	for _, res := range r.index.resolvers[field] {
		if value, ok := res.resolve(r.record); ok {
			return value
		}
	}
	return ""
}

// normalizeKey lower-cases and drops every non-alphanumeric rune.
func normalizeKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Columns holding pre-scaled values never stand in for raw day counts or ages.
func isScaledColumn(header string) bool {
	key := strings.ToLower(header)
	return strings.HasSuffix(key, "_normalized") ||
		strings.HasSuffix(key, "_scaled") ||
		strings.HasSuffix(key, "_zscore")
}
