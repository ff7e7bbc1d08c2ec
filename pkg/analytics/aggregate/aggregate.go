package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var ErrUnknownDimension = errors.New("unknown dimension")

// By groups records along dim. The waiting dimension returns the fixed bins;
// use WaitingBins for the valid/excluded counts.
func By(records []models.AppointmentRecord, dim models.Dimension) ([]models.Bucket, error) {
	switch dim {
	case models.DimensionAgeGroup:
		return ByAgeGroup(records), nil
	case models.DimensionReminder:
		return ByReminder(records), nil
	case models.DimensionWeek:
		return ByWeek(records), nil
	case models.DimensionWaiting:
		return WaitingBins(records).Bins, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
}

func ByAgeGroup(records []models.AppointmentRecord) []models.Bucket {
	buckets := groupBy(records, func(rec models.AppointmentRecord) string { return rec.AgeGroup })
	sortAgeGroups(buckets)
	return buckets
}

// ByReminder always returns "SMS Sent" then "No SMS".
func ByReminder(records []models.AppointmentRecord) []models.Bucket {
	sent := models.Bucket{Key: models.ReminderSent}
	notSent := models.Bucket{Key: models.ReminderNotSent}
	for _, rec := range records {
		if rec.SMSReceived == models.FlagTrue {
			count(&sent, rec)
		} else {
			count(&notSent, rec)
		}
	}
	return []models.Bucket{finish(sent), finish(notSent)}
}

func ByWeek(records []models.AppointmentRecord) []models.Bucket {
	buckets := groupBy(records, func(rec models.AppointmentRecord) string { return rec.Week })
	sortWeeks(buckets)
	return buckets
}

// WaitingBins counts records into the five fixed bins. Records without a
// resolved waiting time are excluded and reported in ExcludedCount.
func WaitingBins(records []models.AppointmentRecord) models.WaitingBinning {
	bins := make([]models.Bucket, len(models.WaitingBins))
	for i, key := range models.WaitingBins {
		bins[i].Key = key
	}
	valid := 0
	for _, rec := range records {
		if rec.WaitingDays == nil {
			continue
		}
		valid++
		count(&bins[binIndex(*rec.WaitingDays)], rec)
	}
	for i := range bins {
		bins[i] = finish(bins[i])
	}
	return models.WaitingBinning{
		Bins:          bins,
		ValidCount:    valid,
		ExcludedCount: len(records) - valid,
	}
}

func binIndex(days int) int {
	switch {
	case days <= 0:
		return 0
	case days <= 3:
		return 1
	case days <= 7:
		return 2
	case days <= 14:
		return 3
	default:
		return 4
	}
}

// Summarize is the single-bucket aggregation of the whole collection.
func Summarize(records []models.AppointmentRecord) models.KPISummary {
	var b models.Bucket
	for _, rec := range records {
		count(&b, rec)
	}
	b = finish(b)
	return models.KPISummary{
		Total:      b.Total,
		NoShows:    b.NoShow,
		Shows:      b.Show,
		NoShowRate: b.Rate,
	}
}

// Rate is noShow/total as a percentage rounded to one decimal, 0 for an
// empty bucket.
func Rate(noShow, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(float64(noShow) / float64(total) * 100)
}

func Round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func groupBy(records []models.AppointmentRecord, key func(models.AppointmentRecord) string) []models.Bucket {
	index := make(map[string]int)
	var buckets []models.Bucket
	for _, rec := range records {
		k := key(rec)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, models.Bucket{Key: k})
		}
		count(&buckets[i], rec)
	}
	for i := range buckets {
		buckets[i] = finish(buckets[i])
	}
	return buckets
}

// count adds rec to b. Total counts every record; Show and NoShow only count
// resolved outcomes.
func count(b *models.Bucket, rec models.AppointmentRecord) {
	b.Total++
	if outcome, ok := rec.Outcome(); ok {
		if outcome == 1 {
			b.NoShow++
		} else {
			b.Show++
		}
	}
}

func finish(b models.Bucket) models.Bucket {
	b.Rate = Rate(b.NoShow, b.Total)
	return b
}
