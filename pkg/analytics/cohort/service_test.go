package cohort

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/synaptica-ai/noshow/pkg/analytics/dsl"
	"github.com/synaptica-ai/noshow/pkg/analytics/filter"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

type memoryCache struct {
	views map[string]models.DashboardView
	gets  int
}

func (c *memoryCache) Get(_ context.Context, datasetID string, filters models.FilterSet) (models.DashboardView, bool, error) {
	c.gets++
	v, ok := c.views[datasetID+filters.Key()]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, view models.DashboardView) error {
	c.views[view.DatasetID+view.Filters.Key()] = view
	return nil
}

type countingSnapshots struct{ writes int }

func (s *countingSnapshots) Write(context.Context, models.DashboardView) error {
	s.writes++
	return nil
}

func intPtr(v int) *int { return &v }

func loadedEngine() *pipeline.Engine {
	engine := pipeline.NewEngine(nil)
	engine.Load(pipeline.NewDataset("test.csv", []models.AppointmentRecord{
		{AgeGroup: "20-29", SMSReceived: "1", Week: "2016-04-25", NoShow: intPtr(1), WaitingDays: intPtr(2)},
		{AgeGroup: "30-39", SMSReceived: "0", Week: "2016-04-25", NoShow: intPtr(0), WaitingDays: intPtr(9)},
		{AgeGroup: "40-49", SMSReceived: "1", Week: "2016-05-02", NoShow: intPtr(0), WaitingDays: intPtr(30)},
	}, models.LoadReport{RowsRead: 3, RowsKept: 3}))
	return engine
}

func TestExecuteProjectsSelectedSections(t *testing.T) {
	svc := NewService(loadedEngine())

	result, err := svc.Execute(context.Background(), models.ViewQuery{ID: "q1", DSL: "SELECT kpis, age_group WHERE sms_received = '1' LIMIT 1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QueryID != "q1" || result.Filters.SMSReceived != "1" {
		t.Fatalf("unexpected result header %+v", result)
	}
	if result.KPIs == nil || result.KPIs.Total != 2 || result.Overall.Total != 3 {
		t.Fatalf("unexpected kpis %+v / %+v", result.KPIs, result.Overall)
	}
	if len(result.AgeGroups) != 1 || result.AgeGroups[0].Key != "20-29" {
		t.Fatalf("expected limit to cap age groups, got %+v", result.AgeGroups)
	}
	if result.Weeks != nil || result.Waiting != nil || result.Insights != nil {
		t.Fatal("expected unselected sections to be omitted")
	}
}

func TestExecuteRejectsBadQueries(t *testing.T) {
	svc := NewService(loadedEngine())
	if _, err := svc.Execute(context.Background(), models.ViewQuery{DSL: "SELECT kpis WHERE gender = 'F'"}); !errors.Is(err, dsl.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := svc.Execute(context.Background(), models.ViewQuery{DSL: "SELECT kpis WHERE sms = 'yes'"}); !errors.Is(err, filter.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestViewReadsThroughCache(t *testing.T) {
	cache := &memoryCache{views: map[string]models.DashboardView{}}
	snaps := &countingSnapshots{}
	svc := NewService(loadedEngine(), WithViewCache(cache), WithSnapshotWriter(snaps))

	first, err := svc.View(context.Background(), models.DefaultFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.View(context.Background(), models.DefaultFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.gets != 2 || len(cache.views) != 1 {
		t.Fatalf("expected one cached view after two reads, got gets=%d entries=%d", cache.gets, len(cache.views))
	}
	if snaps.writes != 1 {
		t.Fatalf("expected one snapshot write on the miss, got %d", snaps.writes)
	}
	if first.KPIs != second.KPIs {
		t.Fatal("expected cached view to match computed view")
	}
}

func TestViewWithoutDatasetSkipsCache(t *testing.T) {
	cache := &memoryCache{views: map[string]models.DashboardView{}}
	svc := NewService(pipeline.NewEngine(nil), WithViewCache(cache))
	view, err := svc.View(context.Background(), models.DefaultFilters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.KPIs.Total != 0 || cache.gets != 0 || len(cache.views) != 0 {
		t.Fatalf("expected empty uncached view, got %+v", view.KPIs)
	}
}

func TestExportWritesFilteredCSV(t *testing.T) {
	svc := NewService(loadedEngine())
	var buf bytes.Buffer
	if err := svc.Export(context.Background(), models.DefaultFilters().WithWeek("2016-04-25"), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Age,AgeGroup,") {
		t.Fatalf("unexpected header %q", lines[0])
	}
}

func TestExportParquetCountsRows(t *testing.T) {
	svc := NewService(loadedEngine())
	var buf bytes.Buffer
	n, err := svc.ExportParquet(context.Background(), models.DefaultFilters(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || buf.Len() == 0 {
		t.Fatalf("expected 3 rows written, got %d (%d bytes)", n, buf.Len())
	}
}

func TestSavedViewsNeedRepository(t *testing.T) {
	svc := NewService(loadedEngine())
	if _, err := svc.SaveView(context.Background(), models.SavedView{Name: "young", DSL: "SELECT kpis"}); !errors.Is(err, ErrViewsUnavailable) {
		t.Fatalf("expected ErrViewsUnavailable, got %v", err)
	}
	views, err := svc.ListViews(context.Background(), 10)
	if err != nil || len(views) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", views, err)
	}
}
