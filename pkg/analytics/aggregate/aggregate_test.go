package aggregate

import (
	"errors"
	"testing"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func intPtr(v int) *int { return &v }

func rec(age, sms, week string, noShow *int, waiting *int) models.AppointmentRecord {
	return models.AppointmentRecord{AgeGroup: age, SMSReceived: sms, Week: week, NoShow: noShow, WaitingDays: waiting}
}

func fixture() []models.AppointmentRecord {
	return []models.AppointmentRecord{
		rec("20-29", "1", "2016-05-02", intPtr(1), intPtr(20)),
		rec("5-9", "0", "2016-04-25", intPtr(0), intPtr(5)),
		rec(models.Unknown, "0", models.Unknown, intPtr(1), nil),
		rec("100+", "yes", "2016-04-25", nil, intPtr(0)),
		rec("20-29", "1", "2016-04-18", intPtr(0), intPtr(2)),
	}
}

func TestWaitingBinsEndToEnd(t *testing.T) {
	records := []models.AppointmentRecord{
		{NoShow: intPtr(1), WaitingDays: intPtr(20)},
		{NoShow: intPtr(0), WaitingDays: intPtr(5)},
		{NoShow: intPtr(1)},
	}
	binning := WaitingBins(records)
	if binning.ValidCount != 2 || binning.ExcludedCount != 1 {
		t.Fatalf("expected valid 2 excluded 1, got %d/%d", binning.ValidCount, binning.ExcludedCount)
	}
	if len(binning.Bins) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(binning.Bins))
	}
	last := binning.Bins[4]
	if last.Key != "15+" || last.Total != 1 || last.NoShow != 1 || last.Rate != 100 {
		t.Fatalf("unexpected 15+ bin %+v", last)
	}
	if binning.Bins[0].Total != 0 || binning.Bins[0].Rate != 0 {
		t.Fatalf("expected empty same-day bin, got %+v", binning.Bins[0])
	}
}

func TestBinBoundaries(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 3: 1, 4: 2, 7: 2, 8: 3, 14: 3, 15: 4, 400: 4}
	for days, want := range cases {
		if got := binIndex(days); got != want {
			t.Fatalf("binIndex(%d) = %d want %d", days, got, want)
		}
	}
}

func TestPartitionSums(t *testing.T) {
	records := fixture()
	for _, dim := range []models.Dimension{models.DimensionAgeGroup, models.DimensionReminder, models.DimensionWeek} {
		buckets, err := By(records, dim)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total := 0
		for _, b := range buckets {
			total += b.Total
			if b.Rate < 0 || b.Rate > 100 {
				t.Fatalf("rate out of range in %s: %+v", dim, b)
			}
			if b.Total == 0 && b.Rate != 0 {
				t.Fatalf("expected zero rate for empty bucket %+v", b)
			}
		}
		if total != len(records) {
			t.Fatalf("%s: expected totals to sum to %d, got %d", dim, len(records), total)
		}
	}
}

func TestAgeGroupOrdering(t *testing.T) {
	buckets := ByAgeGroup(fixture())
	want := []string{"5-9", "20-29", "100+", models.Unknown}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(buckets))
	}
	for i, key := range want {
		if buckets[i].Key != key {
			t.Fatalf("position %d: expected %s, got %s", i, key, buckets[i].Key)
		}
	}
	if buckets[1].Total != 2 || buckets[1].NoShow != 1 || buckets[1].Rate != 50 {
		t.Fatalf("unexpected 20-29 bucket %+v", buckets[1])
	}
}

func TestWeekOrderingUnknownLast(t *testing.T) {
	buckets := ByWeek(fixture())
	want := []string{"2016-04-18", "2016-04-25", "2016-05-02", models.Unknown}
	for i, key := range want {
		if buckets[i].Key != key {
			t.Fatalf("position %d: expected %s, got %s", i, key, buckets[i].Key)
		}
	}
}

func TestReminderAlwaysTwoBuckets(t *testing.T) {
	buckets := ByReminder(nil)
	if len(buckets) != 2 || buckets[0].Key != models.ReminderSent || buckets[1].Key != models.ReminderNotSent {
		t.Fatalf("unexpected buckets %+v", buckets)
	}
	buckets = ByReminder(fixture())
	if buckets[0].Total != 2 || buckets[1].Total != 3 {
		t.Fatalf("expected 2 sent and 3 not sent, got %+v", buckets)
	}
}

func TestSummarizeMatchesSingleBucket(t *testing.T) {
	kpi := Summarize(fixture())
	if kpi.Total != 5 || kpi.NoShows != 2 || kpi.Shows != 2 {
		t.Fatalf("unexpected kpis %+v", kpi)
	}
	if kpi.NoShowRate != 40 {
		t.Fatalf("expected 40%% rate, got %v", kpi.NoShowRate)
	}
	if empty := Summarize(nil); empty.NoShowRate != 0 || empty.Total != 0 {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}

func TestRateRounding(t *testing.T) {
	if got := Rate(1, 3); got != 33.3 {
		t.Fatalf("expected 33.3, got %v", got)
	}
	if got := Rate(2, 3); got != 66.7 {
		t.Fatalf("expected 66.7, got %v", got)
	}
	if got := Rate(0, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestByUnknownDimension(t *testing.T) {
	if _, err := By(nil, models.Dimension("gender")); !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension, got %v", err)
	}
}

func TestWaitingByOutcome(t *testing.T) {
	records := []models.AppointmentRecord{
		{NoShow: intPtr(0), WaitingDays: intPtr(1)},
		{NoShow: intPtr(0), WaitingDays: intPtr(3)},
		{NoShow: intPtr(0), WaitingDays: intPtr(10)},
		{NoShow: intPtr(0), WaitingDays: intPtr(2)},
		{NoShow: intPtr(1), WaitingDays: intPtr(9)},
		{NoShow: intPtr(1), WaitingDays: intPtr(20)},
		{NoShow: intPtr(1)},
		{WaitingDays: intPtr(4)},
	}
	stats := WaitingByOutcome(records)
	if stats.Show.Count != 4 || stats.Show.Median != 2.5 || stats.Show.Mean != 4 {
		t.Fatalf("unexpected show stats %+v", stats.Show)
	}
	if stats.NoShow.Count != 2 || stats.NoShow.Median != 14.5 || stats.NoShow.Mean != 14.5 {
		t.Fatalf("unexpected no-show stats %+v", stats.NoShow)
	}
}
