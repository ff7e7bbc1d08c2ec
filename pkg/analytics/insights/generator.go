package insights

import (
	"fmt"
	"math"

	"github.com/synaptica-ai/noshow/pkg/analytics/aggregate"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// Input is the aggregator output the generator reads. It never sees records.
type Input struct {
	Overall          models.KPISummary
	Filtered         models.KPISummary
	AgeGroups        []models.Bucket
	Weeks            []models.Bucket
	Waiting          models.WaitingBinning
	WaitingByOutcome models.CohortWaiting
}

type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Generate builds every insight whose inputs have support. Missing support
// leaves the corresponding field nil.
func (g *Generator) Generate(in Input) models.Insights {
	out := models.Insights{
		Baseline:         g.Baseline(in.Overall, in.Filtered),
		BusiestWaitBin:   busiest(models.DimensionWaiting, in.Waiting.Bins),
		RiskiestWaitBin:  riskiest(models.DimensionWaiting, in.Waiting.Bins, g.cfg.MinBinSupport),
		RiskiestAgeGroup: riskiest(models.DimensionAgeGroup, in.AgeGroups, 1),
		AgeCohorts:       g.AgeCohorts(in.AgeGroups),
		Trend:            Trend(in.Weeks),
		WaitingImpact:    WaitingImpact(in.WaitingByOutcome),
	}
	if len(g.cfg.Annotations) > 0 {
		out.Annotations = append([]models.Annotation(nil), g.cfg.Annotations...)
	}
	return out
}

// Baseline compares the filtered rate to the overall rate in percentage points.
func (g *Generator) Baseline(overall, filtered models.KPISummary) *models.BaselineInsight {
	if overall.Total == 0 || filtered.Total == 0 {
		return nil
	}
	diff := aggregate.Round1(filtered.NoShowRate - overall.NoShowRate)
	insight := &models.BaselineInsight{
		OverallRate:  overall.NoShowRate,
		FilteredRate: filtered.NoShowRate,
		Difference:   diff,
	}
	switch {
	case math.Abs(diff) < g.cfg.SimilarBand:
		insight.Label = "similar to average"
	case diff > g.cfg.ElevatedThreshold:
		insight.Label = "elevated risk"
		insight.Flagged = true
	case diff > 0:
		insight.Label = "slightly elevated"
	case diff < -g.cfg.ImprovedThreshold:
		insight.Label = "significantly better"
		insight.Flagged = true
	default:
		insight.Label = "better than average"
	}
	return insight
}

func busiest(dim models.Dimension, buckets []models.Bucket) *models.ExtremumInsight {
	var best *models.Bucket
	for i := range buckets {
		if buckets[i].Total == 0 {
			continue
		}
		if best == nil || buckets[i].Total > best.Total {
			best = &buckets[i]
		}
	}
	if best == nil {
		return nil
	}
	return &models.ExtremumInsight{
		Dimension: dim,
		Key:       best.Key,
		Total:     best.Total,
		Rate:      best.Rate,
		Message:   fmt.Sprintf("most appointments fall in the %s %s bucket (%d)", best.Key, label(dim), best.Total),
	}
}

// riskiest returns the highest-rate bucket among those with at least
// minSupport records. Ties keep the earlier bucket.
func riskiest(dim models.Dimension, buckets []models.Bucket, minSupport int) *models.ExtremumInsight {
	if minSupport < 1 {
		minSupport = 1
	}
	var best *models.Bucket
	for i := range buckets {
		if buckets[i].Total < minSupport {
			continue
		}
		if best == nil || buckets[i].Rate > best.Rate {
			best = &buckets[i]
		}
	}
	if best == nil {
		return nil
	}
	return &models.ExtremumInsight{
		Dimension: dim,
		Key:       best.Key,
		Total:     best.Total,
		Rate:      best.Rate,
		Message:   fmt.Sprintf("highest no-show rate is in the %s %s bucket at %.1f%%", best.Key, label(dim), best.Rate),
	}
}

// AgeCohorts compares the mean rate of younger and older age groups. Groups
// without records or without a numeric label are ignored.
func (g *Generator) AgeCohorts(buckets []models.Bucket) *models.CohortInsight {
	var younger, older []float64
	for _, b := range buckets {
		if b.Total == 0 {
			continue
		}
		n, ok := aggregate.LeadingInt(b.Key)
		if !ok {
			continue
		}
		if g.cfg.Younger.Contains(n) {
			younger = append(younger, b.Rate)
		}
		if g.cfg.Older.Contains(n) {
			older = append(older, b.Rate)
		}
	}
	if len(younger) == 0 || len(older) == 0 {
		return nil
	}
	y, o := aggregate.Round1(mean(younger)), aggregate.Round1(mean(older))
	insight := &models.CohortInsight{
		YoungerRate: y,
		OlderRate:   o,
		Difference:  aggregate.Round1(y - o),
	}
	if insight.Difference > g.cfg.CohortGap {
		insight.Flagged = true
		insight.Message = fmt.Sprintf("younger patients miss more appointments (%.1f%% vs %.1f%%)", y, o)
	} else {
		insight.Message = fmt.Sprintf("no marked age gap in no-show rate (%.1f%% vs %.1f%%)", y, o)
	}
	return insight
}

// Trend compares the first and last dated weeks and reports the peak week.
// Buckets are expected in chronological order.
func Trend(weeks []models.Bucket) *models.TrendInsight {
	var dated []models.Bucket
	for _, b := range weeks {
		if b.Total == 0 {
			continue
		}
		if _, ok := aggregate.ValidWeek(b.Key); ok {
			dated = append(dated, b)
		}
	}
	if len(dated) < 2 {
		return nil
	}
	first, last := dated[0], dated[len(dated)-1]
	peak := dated[0]
	for _, b := range dated[1:] {
		if b.Rate > peak.Rate {
			peak = b
		}
	}

	direction := "stable"
	switch {
	case last.Rate > first.Rate:
		direction = "increased"
	case last.Rate < first.Rate:
		direction = "declined"
	}
	return &models.TrendInsight{
		FirstWeek: first.Key,
		FirstRate: first.Rate,
		LastWeek:  last.Key,
		LastRate:  last.Rate,
		Direction: direction,
		PeakWeek:  peak.Key,
		PeakRate:  peak.Rate,
		Message: fmt.Sprintf("no-show rate %s from %.1f%% (week of %s) to %.1f%% (week of %s); peak %.1f%% in week of %s",
			direction, first.Rate, first.Key, last.Rate, last.Key, peak.Rate, peak.Key),
	}
}

// WaitingImpact contrasts waiting days of patients who showed and who did not.
func WaitingImpact(stats models.CohortWaiting) *models.WaitingImpactInsight {
	if stats.Show.Count == 0 || stats.NoShow.Count == 0 {
		return nil
	}
	insight := &models.WaitingImpactInsight{
		ShowMedian:   stats.Show.Median,
		ShowMean:     stats.Show.Mean,
		NoShowMedian: stats.NoShow.Median,
		NoShowMean:   stats.NoShow.Mean,
	}
	if showMean := stats.Show.ExactMean(); showMean > 0 {
		insight.Ratio = aggregate.Round1(stats.NoShow.ExactMean() / showMean)
		insight.Message = fmt.Sprintf("no-show patients waited %.1fx longer on average (%.1f vs %.1f days; median %.1f vs %.1f)",
			insight.Ratio, stats.NoShow.Mean, stats.Show.Mean, stats.NoShow.Median, stats.Show.Median)
	} else {
		insight.Message = fmt.Sprintf("no-show patients waited %.1f days on average while attended patients were seen same day",
			stats.NoShow.Mean)
	}
	return insight
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func label(dim models.Dimension) string {
	switch dim {
	case models.DimensionWaiting:
		return "days waiting"
	case models.DimensionAgeGroup:
		return "age"
	default:
		return string(dim)
	}
}
