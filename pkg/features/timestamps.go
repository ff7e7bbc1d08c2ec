package features

import (
	"math"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
}

const dateLayout = "2006-01-02"

// ParseTimestamp parses the date and date-time spellings seen in appointment
// exports. A space between date and time is rewritten to the ISO "T" separator.
// Values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + strings.TrimSpace(value[11:])
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD label, as produced by FormatDate.
func ParseDate(value string) (time.Time, bool) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DaysBetween returns floor((appointment - scheduled) / 24h), clamped at zero.
func DaysBetween(scheduled, appointment time.Time) int {
	days := math.Floor(appointment.Sub(scheduled).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
