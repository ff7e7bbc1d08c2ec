package storage

import (
	"context"
	"testing"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func TestViewKeyIncludesDatasetAndFilters(t *testing.T) {
	filters := models.DefaultFilters().WithWeek("2016-04-25")
	got := ViewKey("ds-1", filters)
	want := "view:ds-1:" + filters.Key()
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if ViewKey("ds-2", filters) == got {
		t.Fatal("expected different datasets to use different keys")
	}
}

func TestViewCacheWithoutClientMisses(t *testing.T) {
	cache := NewViewCache(nil, time.Minute)
	_, ok, err := cache.Get(context.Background(), "ds-1", models.DefaultFilters())
	if ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Set(context.Background(), models.DashboardView{DatasetID: "ds-1"}); err != nil {
		t.Fatalf("expected no-op set, got %v", err)
	}
}

func TestSnapshotRowsFlattenEveryDimension(t *testing.T) {
	view := models.DashboardView{
		DatasetID: "ds-1",
		Filters:   models.DefaultFilters(),
		AgeGroups: []models.Bucket{{Key: "20-29", Show: 1, NoShow: 1, Total: 2, Rate: 50}},
		Reminders: []models.Bucket{{Key: models.ReminderSent}, {Key: models.ReminderNotSent}},
		Weeks:     []models.Bucket{{Key: "2016-04-25", Total: 2}},
		Waiting:   models.WaitingBinning{Bins: []models.Bucket{{Key: models.WaitingBins[0]}}},
	}
	at := time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := SnapshotRows(view, at)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.Dimension != string(models.DimensionAgeGroup) || first.BucketKey != "20-29" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Value["rate"] != 50.0 || first.FilterKey != view.Filters.Key() {
		t.Fatalf("unexpected value %+v", first.Value)
	}
	if rows[4].Dimension != string(models.DimensionWaiting) {
		t.Fatalf("expected waiting bins last, got %s", rows[4].Dimension)
	}
}
