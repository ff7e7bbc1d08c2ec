package normalizer

import (
	"strconv"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/features"
)

// Transformer turns raw rows into appointment records using an alias catalog.
type Transformer struct {
	catalog Catalog
}

func NewTransformer(cat Catalog) *Transformer {
	if cat.Aliases == nil {
		cat = DefaultCatalog()
	}
	return &Transformer{catalog: cat}
}

func (t *Transformer) Index(header []string) *HeaderIndex {
	return NewHeaderIndex(header, t.catalog)
}

func (t *Transformer) Transform(row Row) models.AppointmentRecord {
	age := parseAge(row.First(models.FieldAge))

	rec := models.AppointmentRecord{
		Age:      age,
		AgeGroup: features.ResolveAgeGroup(row.First(models.FieldAgeGroup), age),
	}

	sms, _ := CoerceFlag(row.First(models.FieldSMSReceived))
	rec.SMSReceived = sms

	if flag, ok := CoerceFlag(row.First(models.FieldNoShow)); ok {
		value, _ := strconv.Atoi(flag)
		rec.NoShow = &value
	}

	if scheduled, ok := features.ResolveTimestamp(row, models.FieldScheduled); ok {
		rec.ScheduledAt = &scheduled
	}
	if appointment, ok := features.ResolveTimestamp(row, models.FieldAppointment); ok {
		rec.AppointmentAt = &appointment
	}

	rec.WaitingDays = features.ResolveWaitingDays(row)
	rec.Week = features.ResolveWeek(row.First(models.FieldWeek), rec.AppointmentAt)
	return rec
}
