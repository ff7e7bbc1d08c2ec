package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var ErrInvalidFilter = errors.New("invalid filter")

// Apply keeps the records matching every non-"All" dimension of filters,
// preserving input order. Default filters return records unchanged.
func Apply(records []models.AppointmentRecord, filters models.FilterSet) []models.AppointmentRecord {
	filters = filters.Normalized()
	if filters.IsDefault() {
		return records
	}
	out := make([]models.AppointmentRecord, 0, len(records))
	for _, rec := range records {
		if Matches(rec, filters) {
			out = append(out, rec)
		}
	}
	return out
}

func Matches(rec models.AppointmentRecord, filters models.FilterSet) bool {
	if filters.AgeGroup != models.FilterAll && rec.AgeGroup != filters.AgeGroup {
		return false
	}
	if filters.SMSReceived != models.FilterAll && rec.SMSReceived != filters.SMSReceived {
		return false
	}
	if filters.Week != models.FilterAll && rec.Week != filters.Week {
		return false
	}
	return true
}

// FromValues reads age_group, sms_received and week parameters. Missing or
// blank parameters mean "All"; sms_received must be 0, 1 or All.
func FromValues(values url.Values) (models.FilterSet, error) {
	filters := models.FilterSet{
		AgeGroup:    strings.TrimSpace(values.Get("age_group")),
		SMSReceived: strings.TrimSpace(values.Get("sms_received")),
		Week:        strings.TrimSpace(values.Get("week")),
	}.Normalized()
	if err := Validate(filters); err != nil {
		return models.FilterSet{}, err
	}
	return filters, nil
}

func Validate(filters models.FilterSet) error {
	switch filters.Normalized().SMSReceived {
	case models.FilterAll, models.FlagTrue, models.FlagFalse:
		return nil
	default:
		return fmt.Errorf("%w: sms_received must be 0, 1 or All", ErrInvalidFilter)
	}
}
