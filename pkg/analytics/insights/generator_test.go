package insights

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synaptica-ai/noshow/pkg/analytics/aggregate"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func intPtr(v int) *int { return &v }

func kpi(total int, rate float64) models.KPISummary {
	return models.KPISummary{Total: total, NoShowRate: rate}
}

func TestBaselineClassification(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	cases := []struct {
		filtered float64
		label    string
		flagged  bool
	}{
		{20.5, "similar to average", false},
		{19.2, "similar to average", false},
		{24.1, "elevated risk", true},
		{22.0, "slightly elevated", false},
		{16.0, "significantly better", true},
		{18.0, "better than average", false},
	}
	for _, tc := range cases {
		got := g.Baseline(kpi(1000, 20), kpi(100, tc.filtered))
		if got == nil {
			t.Fatalf("expected baseline for %.1f", tc.filtered)
		}
		if got.Label != tc.label || got.Flagged != tc.flagged {
			t.Fatalf("filtered %.1f: got %q flagged=%v want %q flagged=%v", tc.filtered, got.Label, got.Flagged, tc.label, tc.flagged)
		}
	}
	if g.Baseline(kpi(1000, 20), kpi(0, 0)) != nil {
		t.Fatal("expected no baseline for an empty selection")
	}
}

func TestWaitingExtremaRespectSupport(t *testing.T) {
	bins := []models.Bucket{
		{Key: "0", Total: 400, Rate: 5},
		{Key: "1-3", Total: 120, Rate: 20},
		{Key: "4-7", Total: 60, Rate: 28},
		{Key: "8-14", Total: 10, Rate: 60},
		{Key: "15+", Total: 0, Rate: 0},
	}
	g := NewGenerator(DefaultConfig())
	out := g.Generate(Input{Waiting: models.WaitingBinning{Bins: bins}})
	if out.BusiestWaitBin == nil || out.BusiestWaitBin.Key != "0" {
		t.Fatalf("unexpected busiest bin %+v", out.BusiestWaitBin)
	}
	if out.RiskiestWaitBin == nil || out.RiskiestWaitBin.Key != "4-7" {
		t.Fatalf("expected 8-14 excluded by support guard, got %+v", out.RiskiestWaitBin)
	}
}

func TestRiskiestAgeGroupHasNoSupportGuard(t *testing.T) {
	ages := []models.Bucket{
		{Key: "20-29", Total: 500, Rate: 22},
		{Key: "90+", Total: 3, Rate: 66.7},
	}
	out := NewGenerator(DefaultConfig()).Generate(Input{AgeGroups: ages})
	if out.RiskiestAgeGroup == nil || out.RiskiestAgeGroup.Key != "90+" {
		t.Fatalf("unexpected riskiest age group %+v", out.RiskiestAgeGroup)
	}
}

func TestAgeCohorts(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ages := []models.Bucket{
		{Key: "10-19", Total: 10, Rate: 25},
		{Key: "20-29", Total: 10, Rate: 23},
		{Key: "50-59", Total: 10, Rate: 18},
		{Key: "60-69", Total: 10, Rate: 16},
		{Key: models.Unknown, Total: 10, Rate: 90},
	}
	got := g.AgeCohorts(ages)
	if got == nil || !got.Flagged || got.YoungerRate != 24 || got.OlderRate != 17 {
		t.Fatalf("unexpected cohort insight %+v", got)
	}

	narrow := []models.Bucket{{Key: "20-29", Total: 5, Rate: 19}, {Key: "50-59", Total: 5, Rate: 18}}
	if got := g.AgeCohorts(narrow); got == nil || got.Flagged {
		t.Fatalf("expected unflagged comparison, got %+v", got)
	}
	if got := g.AgeCohorts(ages[:2]); got != nil {
		t.Fatalf("expected nil without older support, got %+v", got)
	}
}

func TestTrend(t *testing.T) {
	weeks := []models.Bucket{
		{Key: "2016-04-25", Total: 10, Rate: 18},
		{Key: "2016-05-02", Total: 10, Rate: 27},
		{Key: "2016-05-09", Total: 10, Rate: 21},
		{Key: models.Unknown, Total: 10, Rate: 80},
	}
	got := Trend(weeks)
	if got == nil {
		t.Fatal("expected trend")
	}
	if got.Direction != "increased" || got.FirstWeek != "2016-04-25" || got.LastWeek != "2016-05-09" {
		t.Fatalf("unexpected trend %+v", got)
	}
	if got.PeakWeek != "2016-05-02" || got.PeakRate != 27 {
		t.Fatalf("unexpected peak %+v", got)
	}
	if Trend(weeks[:1]) != nil {
		t.Fatal("expected nil trend with a single week")
	}
	down := Trend([]models.Bucket{{Key: "2016-04-25", Total: 1, Rate: 30}, {Key: "2016-05-02", Total: 1, Rate: 10}})
	if down == nil || down.Direction != "declined" {
		t.Fatalf("expected declined trend, got %+v", down)
	}
}

func TestWaitingImpact(t *testing.T) {
	got := WaitingImpact(models.CohortWaiting{
		Show:   models.WaitingStats{Count: 4, TotalDays: 16, Mean: 4, Median: 2.5},
		NoShow: models.WaitingStats{Count: 2, TotalDays: 29, Mean: 14.5, Median: 14.5},
	})
	if got == nil || got.Ratio != 3.6 {
		t.Fatalf("unexpected waiting impact %+v", got)
	}

	// Show mean is 4/3 days; rounding it to 1.3 first would give a ratio of 3.1.
	exact := WaitingImpact(aggregate.WaitingByOutcome([]models.AppointmentRecord{
		{NoShow: intPtr(0), WaitingDays: intPtr(1)},
		{NoShow: intPtr(0), WaitingDays: intPtr(1)},
		{NoShow: intPtr(0), WaitingDays: intPtr(2)},
		{NoShow: intPtr(1), WaitingDays: intPtr(4)},
	}))
	if exact == nil || exact.Ratio != 3 || exact.ShowMean != 1.3 {
		t.Fatalf("expected ratio from unrounded means, got %+v", exact)
	}
	if WaitingImpact(models.CohortWaiting{Show: models.WaitingStats{Count: 3, Mean: 2}}) != nil {
		t.Fatal("expected nil without no-show support")
	}
}

func TestGenerateEmptyInputOmitsEverything(t *testing.T) {
	out := NewGenerator(DefaultConfig()).Generate(Input{})
	if len(out.Messages()) != 0 {
		t.Fatalf("expected no insights, got %v", out.Messages())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "insights.yaml")
	content := []byte(`min_bin_support: 20
younger:
  min: 0
  max: 29
annotations:
  - title: waiting time correlation
    value: 0.19
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinBinSupport != 20 || cfg.Younger.Max != 29 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ElevatedThreshold != 3 || cfg.Older.Min != 50 {
		t.Fatalf("expected defaults kept for unset fields, got %+v", cfg)
	}
	if len(cfg.Annotations) != 1 || cfg.Annotations[0].Value != 0.19 {
		t.Fatalf("unexpected annotations %+v", cfg.Annotations)
	}

	out := NewGenerator(cfg).Generate(Input{})
	if len(out.Annotations) != 1 {
		t.Fatal("expected annotations passed through")
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
