package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// CanonicalHeader is the column layout WriteCSV emits. Every name is a default
// alias, so the output parses back to the same records.
var CanonicalHeader = []string{
	"Age", "AgeGroup", "ScheduledDay", "AppointmentDay", "SMS_received", "NoShow", "WaitingDays", "Week",
}

func WriteCSV(w io.Writer, records []models.AppointmentRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CanonicalHeader); err != nil {
		return err
	}
	for i, rec := range records {
		if err := writer.Write(CanonicalRow(rec)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CanonicalRow renders rec in CanonicalHeader order.
func CanonicalRow(rec models.AppointmentRecord) []string {
	row := make([]string, len(CanonicalHeader))
	if rec.Age != nil {
		row[0] = strconv.FormatFloat(*rec.Age, 'f', -1, 64)
	}
	row[1] = rec.AgeGroup
	row[2] = formatTime(rec.ScheduledAt)
	row[3] = formatTime(rec.AppointmentAt)
	row[4] = rec.SMSReceived
	if rec.NoShow != nil {
		row[5] = strconv.Itoa(*rec.NoShow)
	}
	if rec.WaitingDays != nil {
		row[6] = strconv.Itoa(*rec.WaitingDays)
	}
	row[7] = rec.Week
	return row
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
