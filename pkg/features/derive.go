package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// Row exposes the raw cell values of one input row. Candidates returns every
// non-empty value for a logical field, ordered by resolver precedence.
type Row interface {
	Candidates(field models.Field) []string
}

// ResolveWaitingDays picks the first value that parses, in order: explicit
// waiting-days columns, awaiting-time columns, then the gap between the
// scheduled and appointment timestamps. Nil when nothing resolves.
func ResolveWaitingDays(row Row) *int {
	for _, field := range []models.Field{models.FieldWaitingDays, models.FieldAwaitingDays} {
		for _, raw := range row.Candidates(field) {
			if days, ok := ParseDays(raw); ok {
				return &days
			}
		}
	}

	scheduled, okScheduled := ResolveTimestamp(row, models.FieldScheduled)
	appointment, okAppointment := ResolveTimestamp(row, models.FieldAppointment)
	if okScheduled && okAppointment {
		days := DaysBetween(scheduled, appointment)
		return &days
	}
	return nil
}

// ResolveTimestamp returns the first candidate of field that parses as a timestamp.
func ResolveTimestamp(row Row, field models.Field) (time.Time, bool) {
	for _, raw := range row.Candidates(field) {
		if t, ok := ParseTimestamp(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDays reads an explicit day count. Fractions floor, negatives clamp to
// zero, and counts beyond MaxInt32 are treated as unparseable.
func ParseDays(raw string) (int, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value > math.MaxInt32 {
		return 0, false
	}
	value = math.Floor(value)
	if value < 0 {
		value = 0
	}
	return int(value), true
}

// ResolveWeek keeps an existing week label unless it is blank or "unknown";
// otherwise it derives the Monday on or before the appointment date.
func ResolveWeek(label string, appointment *time.Time) string {
	label = strings.TrimSpace(label)
	if label != "" && !strings.EqualFold(label, models.Unknown) {
		return label
	}
	if appointment == nil {
		return models.Unknown
	}
	return FormatDate(WeekStart(*appointment))
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	day := dateOnly(t)
	offset := 1 - int(day.Weekday())
	if day.Weekday() == time.Sunday {
		offset = -6
	}
	return day.AddDate(0, 0, offset)
}

// AgeGroup buckets an age into decades, "90+" from ninety, "Unknown" when
// absent or negative.
func AgeGroup(age *float64) string {
	if age == nil || math.IsNaN(*age) || *age < 0 {
		return models.Unknown
	}
	decade := int(math.Floor(*age/10)) * 10
	if decade >= 90 {
		return "90+"
	}
	return fmt.Sprintf("%d-%d", decade, decade+9)
}

// ResolveAgeGroup keeps an explicit label unless blank or "unknown".
func ResolveAgeGroup(label string, age *float64) string {
	label = strings.TrimSpace(label)
	if label != "" && !strings.EqualFold(label, models.Unknown) {
		return label
	}
	return AgeGroup(age)
}

// Derive re-applies derivation to an already-built record. Resolved fields are
// left as they are, so applying it twice is a no-op.
func Derive(rec models.AppointmentRecord) models.AppointmentRecord {
	if rec.WaitingDays == nil && rec.ScheduledAt != nil && rec.AppointmentAt != nil {
		days := DaysBetween(*rec.ScheduledAt, *rec.AppointmentAt)
		rec.WaitingDays = &days
	} else if rec.WaitingDays != nil && *rec.WaitingDays < 0 {
		zero := 0
		rec.WaitingDays = &zero
	}
	rec.Week = ResolveWeek(rec.Week, rec.AppointmentAt)
	rec.AgeGroup = ResolveAgeGroup(rec.AgeGroup, rec.Age)
	return rec
}
