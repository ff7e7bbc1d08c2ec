package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/noshow/pkg/analytics/aggregate"
	"github.com/synaptica-ai/noshow/pkg/analytics/filter"
	"github.com/synaptica-ai/noshow/pkg/analytics/insights"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var ErrNoDataset = errors.New("no dataset loaded")

// Dataset is one loaded, normalized record collection. It is never mutated
// after Load.
type Dataset struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Records  []models.AppointmentRecord
	Report   models.LoadReport
}

func NewDataset(source string, records []models.AppointmentRecord, report models.LoadReport) *Dataset {
	return &Dataset{
		ID:       uuid.New().String(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Records:  records,
		Report:   report,
	}
}

func (d *Dataset) Summary() models.DatasetSummary {
	return models.DatasetSummary{
		ID:       d.ID,
		Source:   d.Source,
		LoadedAt: d.LoadedAt,
		Records:  len(d.Records),
		Report:   d.Report,
	}
}

type aggregates struct {
	kpis      models.KPISummary
	ageGroups []models.Bucket
	reminders []models.Bucket
	weeks     []models.Bucket
	waiting   models.WaitingBinning
	outcomes  models.CohortWaiting
}

// Stats reports memo effectiveness across all stages.
type Stats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Entries int `json:"entries"`
}

// Engine runs filter, aggregate and insight stages over the current dataset.
// Each stage is memoized per (dataset, filters); loading a dataset discards
// every memoized stage.
type Engine struct {
	mu        sync.Mutex
	dataset   *Dataset
	generator *insights.Generator
	filtered  *memo[[]models.AppointmentRecord]
	aggs      *memo[aggregates]
	insights  *memo[models.Insights]
}

type EngineOption func(*engineOptions)

type engineOptions struct {
	memoSize int
}

// WithMemoSize caps the entries kept per stage.
func WithMemoSize(n int) EngineOption {
	return func(o *engineOptions) { o.memoSize = n }
}

func NewEngine(generator *insights.Generator, opts ...EngineOption) *Engine {
	if generator == nil {
		generator = insights.NewGenerator(insights.DefaultConfig())
	}
	o := engineOptions{memoSize: DefaultMemoSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		dataset:   &Dataset{},
		generator: generator,
		filtered:  newMemo[[]models.AppointmentRecord](o.memoSize),
		aggs:      newMemo[aggregates](o.memoSize),
		insights:  newMemo[models.Insights](o.memoSize),
	}
}

// Load replaces the dataset wholesale.
func (e *Engine) Load(ds *Dataset) {
	if ds == nil {
		ds = &Dataset{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataset = ds
	e.filtered.reset()
	e.aggs.reset()
	e.insights.reset()
}

func (e *Engine) Current() (models.DatasetSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dataset.ID == "" {
		return models.DatasetSummary{}, ErrNoDataset
	}
	return e.dataset.Summary(), nil
}

// Records returns a copy of the records passing filters.
func (e *Engine) Records(filters models.FilterSet) []models.AppointmentRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.AppointmentRecord(nil), e.filteredLocked(filters)...)
}

// View computes the full dashboard for filters. With no dataset loaded every
// aggregate is zero and every insight absent.
func (e *Engine) View(filters models.FilterSet) models.DashboardView {
	filters = filters.Normalized()
	e.mu.Lock()
	defer e.mu.Unlock()

	overall := e.aggregatesLocked(models.DefaultFilters())
	current := e.aggregatesLocked(filters)
	return models.DashboardView{
		DatasetID: e.dataset.ID,
		Filters:   filters,
		Overall:   overall.kpis,
		KPIs:      current.kpis,
		AgeGroups: cloneBuckets(current.ageGroups),
		Reminders: cloneBuckets(current.reminders),
		Weeks:     cloneBuckets(current.weeks),
		Waiting: models.WaitingBinning{
			Bins:          cloneBuckets(current.waiting.Bins),
			ValidCount:    current.waiting.ValidCount,
			ExcludedCount: current.waiting.ExcludedCount,
		},
		Outcomes: current.outcomes,
		Insights: e.insightsLocked(filters),
	}
}

func (e *Engine) KPIs(filters models.FilterSet) models.KPISummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregatesLocked(filters.Normalized()).kpis
}

func (e *Engine) Buckets(filters models.FilterSet, dim models.Dimension) ([]models.Bucket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	aggs := e.aggregatesLocked(filters.Normalized())
	switch dim {
	case models.DimensionAgeGroup:
		return cloneBuckets(aggs.ageGroups), nil
	case models.DimensionReminder:
		return cloneBuckets(aggs.reminders), nil
	case models.DimensionWeek:
		return cloneBuckets(aggs.weeks), nil
	case models.DimensionWaiting:
		return cloneBuckets(aggs.waiting.Bins), nil
	default:
		return aggregate.By(nil, dim)
	}
}

func (e *Engine) Insights(filters models.FilterSet) models.Insights {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insightsLocked(filters.Normalized())
}

// Options lists the distinct age groups and weeks in the dataset, in the
// same order the aggregator reports them.
func (e *Engine) Options() models.FilterOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	aggs := e.aggregatesLocked(models.DefaultFilters())
	opts := models.FilterOptions{
		AgeGroups:   []string{models.FilterAll},
		SMSReceived: []string{models.FilterAll, models.FlagTrue, models.FlagFalse},
		Weeks:       []string{models.FilterAll},
	}
	for _, b := range aggs.ageGroups {
		opts.AgeGroups = append(opts.AgeGroups, b.Key)
	}
	for _, b := range aggs.weeks {
		opts.Weeks = append(opts.Weeks, b.Key)
	}
	return opts
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Hits:    e.filtered.hits + e.aggs.hits + e.insights.hits,
		Misses:  e.filtered.misses + e.aggs.misses + e.insights.misses,
		Entries: e.filtered.len() + e.aggs.len() + e.insights.len(),
	}
}

func (e *Engine) key(filters models.FilterSet) string {
	return e.dataset.ID + "|" + filters.Key()
}

func (e *Engine) filteredLocked(filters models.FilterSet) []models.AppointmentRecord {
	return e.filtered.get(e.key(filters), func() []models.AppointmentRecord {
		return filter.Apply(e.dataset.Records, filters)
	})
}

func (e *Engine) aggregatesLocked(filters models.FilterSet) aggregates {
	return e.aggs.get(e.key(filters), func() aggregates {
		records := e.filteredLocked(filters)
		return aggregates{
			kpis:      aggregate.Summarize(records),
			ageGroups: aggregate.ByAgeGroup(records),
			reminders: aggregate.ByReminder(records),
			weeks:     aggregate.ByWeek(records),
			waiting:   aggregate.WaitingBins(records),
			outcomes:  aggregate.WaitingByOutcome(records),
		}
	})
}

func (e *Engine) insightsLocked(filters models.FilterSet) models.Insights {
	return e.insights.get(e.key(filters), func() models.Insights {
		overall := e.aggregatesLocked(models.DefaultFilters())
		current := e.aggregatesLocked(filters)
		return e.generator.Generate(insights.Input{
			Overall:          overall.kpis,
			Filtered:         current.kpis,
			AgeGroups:        current.ageGroups,
			Weeks:            current.weeks,
			Waiting:          current.waiting,
			WaitingByOutcome: current.outcomes,
		})
	})
}

func cloneBuckets(in []models.Bucket) []models.Bucket {
	if in == nil {
		return []models.Bucket{}
	}
	return append([]models.Bucket(nil), in...)
}

