package aggregate

import (
	"sort"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

// WaitingByOutcome summarizes waiting days separately for shows and no-shows.
// Records lacking either an outcome or a waiting time are skipped.
func WaitingByOutcome(records []models.AppointmentRecord) models.CohortWaiting {
	var shows, noShows []int
	for _, rec := range records {
		outcome, ok := rec.Outcome()
		if !ok || rec.WaitingDays == nil {
			continue
		}
		if outcome == 1 {
			noShows = append(noShows, *rec.WaitingDays)
		} else {
			shows = append(shows, *rec.WaitingDays)
		}
	}
	return models.CohortWaiting{
		Show:   summarize(shows),
		NoShow: summarize(noShows),
	}
}

func summarize(values []int) models.WaitingStats {
	if len(values) == 0 {
		return models.WaitingStats{}
	}
	sorted := append([]int{}, values...)
	sort.Ints(sorted)
	sum := 0
	for _, v := range sorted {
		sum += v
	}
	mid := len(sorted) / 2
	median := float64(sorted[mid])
	if len(sorted)%2 == 0 {
		median = float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return models.WaitingStats{
		Count:     len(sorted),
		TotalDays: sum,
		Mean:      Round1(float64(sum) / float64(len(sorted))),
		Median:    median,
	}
}
