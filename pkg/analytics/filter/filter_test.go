package filter

import (
	"errors"
	"net/url"
	"testing"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func sample() []models.AppointmentRecord {
	return []models.AppointmentRecord{
		{AgeGroup: "20-29", SMSReceived: "1", Week: "2016-04-25"},
		{AgeGroup: "30-39", SMSReceived: "0", Week: "2016-04-25"},
		{AgeGroup: "20-29", SMSReceived: "0", Week: "2016-05-02"},
		{AgeGroup: models.Unknown, SMSReceived: "maybe", Week: models.Unknown},
	}
}

func TestApplyDefaultReturnsAllInOrder(t *testing.T) {
	records := sample()
	got := Apply(records, models.DefaultFilters())
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i := range got {
		if got[i] != records[i] {
			t.Fatalf("record %d changed", i)
		}
	}
}

func TestApplyAgeGroupOnly(t *testing.T) {
	got := Apply(sample(), models.FilterSet{AgeGroup: "20-29", SMSReceived: models.FilterAll, Week: models.FilterAll})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for _, rec := range got {
		if rec.AgeGroup != "20-29" {
			t.Fatalf("unexpected age group %s", rec.AgeGroup)
		}
	}
	if got[0].Week != "2016-04-25" || got[1].Week != "2016-05-02" {
		t.Fatal("expected input order preserved")
	}
}

func TestApplyConjunction(t *testing.T) {
	got := Apply(sample(), models.DefaultFilters().WithAgeGroup("20-29").WithSMSReceived("0"))
	if len(got) != 1 || got[0].Week != "2016-05-02" {
		t.Fatalf("unexpected result %+v", got)
	}
	if empty := Apply(sample(), models.DefaultFilters().WithWeek("1999-01-04")); len(empty) != 0 {
		t.Fatalf("expected empty result, got %d", len(empty))
	}
}

func TestFromValues(t *testing.T) {
	filters, err := FromValues(url.Values{"age_group": {"20-29"}, "sms_received": {"1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.AgeGroup != "20-29" || filters.SMSReceived != "1" || filters.Week != models.FilterAll {
		t.Fatalf("unexpected filters %+v", filters)
	}

	_, err = FromValues(url.Values{"sms_received": {"yes"}})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}
