package aggregate

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/features"
)

// sortAgeGroups orders by the label's leading integer. Labels without one
// follow the numeric labels alphabetically; "Unknown" is always last.
func sortAgeGroups(buckets []models.Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i].Key, buckets[j].Key
		if ra, rb := unknownRank(a), unknownRank(b); ra != rb {
			return ra < rb
		}
		na, okA := LeadingInt(a)
		nb, okB := LeadingInt(b)
		switch {
		case okA && okB:
			if na != nb {
				return na < nb
			}
			return a < b
		case okA != okB:
			return okA
		default:
			return a < b
		}
	})
}

// sortWeeks orders chronologically. Labels that do not parse as dates follow
// the dated ones alphabetically; "Unknown" is always last.
func sortWeeks(buckets []models.Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i].Key, buckets[j].Key
		if ra, rb := unknownRank(a), unknownRank(b); ra != rb {
			return ra < rb
		}
		ta, okA := features.ParseDate(a)
		tb, okB := features.ParseDate(b)
		switch {
		case okA && okB:
			return ta.Before(tb)
		case okA != okB:
			return okA
		default:
			return a < b
		}
	})
}

// LeadingInt parses the digits at the start of an age-group label.
func LeadingInt(label string) (int, bool) {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidWeek reports whether label is a dated week, as opposed to "Unknown"
// or free text.
func ValidWeek(label string) (time.Time, bool) {
	if unknownRank(label) == 1 {
		return time.Time{}, false
	}
	return features.ParseDate(label)
}

func unknownRank(label string) int {
	if strings.EqualFold(strings.TrimSpace(label), models.Unknown) {
		return 1
	}
	return 0
}
