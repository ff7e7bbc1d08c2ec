package normalizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// Catalog maps each logical field to the header spellings accepted for it,
// in precedence order.
type Catalog struct {
	Aliases map[models.Field][]string `yaml:"aliases" json:"aliases"`
}

// LoadCatalog reads a YAML alias catalog. Fields the file does not mention keep
// their default aliases.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Aliases) == 0 {
		return Catalog{}, fmt.Errorf("column catalog empty")
	}
	merged := DefaultCatalog()
	for field, aliases := range cat.Aliases {
		if len(aliases) > 0 {
			merged.Aliases[field] = aliases
		}
	}
	return merged, nil
}

func (c Catalog) Lookup(field models.Field) []string {
	if c.Aliases == nil {
		return nil
	}
	return c.Aliases[field]
}

func DefaultCatalog() Catalog {
	return Catalog{Aliases: map[models.Field][]string{
		models.FieldAge:          {"Age", "patient_age", "PatientAge"},
		models.FieldAgeGroup:     {"AgeGroup", "age_group", "AgeBand"},
		models.FieldScheduled:    {"ScheduledDay", "scheduled_day", "ScheduledDate", "scheduled_at", "ScheduledAt"},
		models.FieldAppointment:  {"AppointmentDay", "appointment_day", "AppointmentDate", "appointment_at", "AppointmentAt"},
		models.FieldSMSReceived:  {"SMS_received", "SMSReceived", "sms", "reminder_sent"},
		models.FieldNoShow:       {"NoShow", "No-show", "no_show", "NoShowFlag"},
		models.FieldWaitingDays:  {"WaitingDays", "waiting_days", "WaitDays", "days_waiting", "waiting_time"},
		models.FieldAwaitingDays: {"AwaitingTime", "awaiting_time", "AwaitingDays", "awaiting_days"},
		models.FieldWeek:         {"Week", "AppointmentWeek", "week_start"},
	}}
}
