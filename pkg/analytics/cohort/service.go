package cohort

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/synaptica-ai/noshow/pkg/analytics/dsl"
	"github.com/synaptica-ai/noshow/pkg/analytics/filter"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/export"
	"github.com/synaptica-ai/noshow/pkg/normalizer"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

var ErrViewsUnavailable = errors.New("saved views require a database")

// ViewCache is satisfied by storage.ViewCache.
type ViewCache interface {
	Get(ctx context.Context, datasetID string, filters models.FilterSet) (models.DashboardView, bool, error)
	Set(ctx context.Context, view models.DashboardView) error
}

// SnapshotWriter is satisfied by storage.SnapshotWriter.
type SnapshotWriter interface {
	Write(ctx context.Context, view models.DashboardView) error
}

// Service answers dashboard queries against the engine, with optional shared
// caching and snapshotting of computed views.
type Service struct {
	engine    *pipeline.Engine
	cache     ViewCache
	snapshots SnapshotWriter
	views     *ViewRepository
}

type Option func(*Service)

func WithViewCache(cache ViewCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithSnapshotWriter(w SnapshotWriter) Option {
	return func(s *Service) {
		s.snapshots = w
	}
}

func WithViewRepository(repo *ViewRepository) Option {
	return func(s *Service) {
		s.views = repo
	}
}

func NewService(engine *pipeline.Engine, opts ...Option) *Service {
	svc := &Service{engine: engine}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// View returns the dashboard for filters, reading through the shared cache
// when one is configured. Cache failures degrade to a direct computation.
func (s *Service) View(ctx context.Context, filters models.FilterSet) (models.DashboardView, error) {
	filters = filters.Normalized()
	if err := filter.Validate(filters); err != nil {
		return models.DashboardView{}, err
	}

	datasetID := ""
	if current, err := s.engine.Current(); err == nil {
		datasetID = current.ID
	}

	if s.cache != nil && datasetID != "" {
		view, ok, err := s.cache.Get(ctx, datasetID, filters)
		if err != nil {
			logger.Log.WithError(err).Warn("view cache read failed")
		}
		metrics.ObserveViewCache(ok)
		if ok {
			return view, nil
		}
	}

	view := s.engine.View(filters)
	if view.DatasetID == "" {
		return view, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			logger.Log.WithError(err).Warn("view cache write failed")
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.Write(ctx, view); err != nil {
			logger.Log.WithError(err).WithField("dataset_id", view.DatasetID).Warn("view snapshot write failed")
		}
	}
	return view, nil
}

// Execute parses the query, computes the view and keeps only the selected
// sections. LIMIT caps each bucket list.
func (s *Service) Execute(ctx context.Context, query models.ViewQuery) (models.ViewResult, error) {
	parsed, err := dsl.Parse(query.DSL)
	if err != nil {
		return models.ViewResult{}, err
	}
	filters, err := parsed.FilterSet()
	if err != nil {
		return models.ViewResult{}, err
	}
	view, err := s.View(ctx, filters)
	if err != nil {
		return models.ViewResult{}, err
	}
	result := Project(view, parsed)
	result.QueryID = query.ID
	return result, nil
}

// Project copies the selected sections of view into a ViewResult.
func Project(view models.DashboardView, q dsl.Query) models.ViewResult {
	result := models.ViewResult{
		DatasetID: view.DatasetID,
		Filters:   view.Filters,
		Sections:  append([]string(nil), q.SelectFields...),
	}
	if q.Selects(dsl.SectionKPIs) {
		overall, kpis := view.Overall, view.KPIs
		result.Overall = &overall
		result.KPIs = &kpis
	}
	if q.Selects(dsl.SectionAgeGroup) {
		result.AgeGroups = limit(view.AgeGroups, q.Limit)
	}
	if q.Selects(dsl.SectionReminder) {
		result.Reminders = limit(view.Reminders, q.Limit)
	}
	if q.Selects(dsl.SectionWeek) {
		result.Weeks = limit(view.Weeks, q.Limit)
	}
	if q.Selects(dsl.SectionWaiting) {
		waiting := view.Waiting
		waiting.Bins = limit(waiting.Bins, q.Limit)
		result.Waiting = &waiting
	}
	if q.Selects(dsl.SectionOutcomes) {
		outcomes := view.Outcomes
		result.Outcomes = &outcomes
	}
	if q.Selects(dsl.SectionInsights) {
		ins := view.Insights
		result.Insights = &ins
		result.Messages = ins.Messages()
	}
	return result
}

// Export streams the filtered records as canonical CSV.
func (s *Service) Export(ctx context.Context, filters models.FilterSet, w io.Writer) error {
	records, err := s.records(ctx, filters)
	if err != nil {
		return err
	}
	return normalizer.WriteCSV(w, records)
}

// ExportParquet writes the filtered records as a single parquet file.
func (s *Service) ExportParquet(ctx context.Context, filters models.FilterSet, w io.Writer) (int, error) {
	records, err := s.records(ctx, filters)
	if err != nil {
		return 0, err
	}
	current, _ := s.engine.Current()
	pw := export.NewParquetWriter(w, current.ID)
	if _, err := pw.Write(records); err != nil {
		pw.Close()
		return 0, err
	}
	if err := pw.Close(); err != nil {
		return 0, err
	}
	return pw.Count(), nil
}

func (s *Service) VerifyDSL(input string) error {
	parsed, err := dsl.Parse(input)
	if err != nil {
		return err
	}
	_, err = parsed.FilterSet()
	return err
}

// SaveView stores a named query after checking it parses.
func (s *Service) SaveView(ctx context.Context, view models.SavedView) (models.SavedView, error) {
	if s.views == nil {
		return models.SavedView{}, ErrViewsUnavailable
	}
	if view.Name == "" {
		return models.SavedView{}, fmt.Errorf("%w: name is required", dsl.ErrInvalidQuery)
	}
	if err := s.VerifyDSL(view.DSL); err != nil {
		return models.SavedView{}, err
	}
	return s.views.Create(ctx, view)
}

func (s *Service) ListViews(ctx context.Context, limit int) ([]models.SavedView, error) {
	if s.views == nil {
		return []models.SavedView{}, nil
	}
	return s.views.List(ctx, limit)
}

// RunView executes a saved query against the current dataset.
func (s *Service) RunView(ctx context.Context, id string) (models.ViewResult, error) {
	if s.views == nil {
		return models.ViewResult{}, ErrViewsUnavailable
	}
	saved, err := s.views.Get(ctx, id)
	if err != nil {
		return models.ViewResult{}, err
	}
	return s.Execute(ctx, models.ViewQuery{ID: saved.ID, DSL: saved.DSL})
}

func (s *Service) records(_ context.Context, filters models.FilterSet) ([]models.AppointmentRecord, error) {
	filters = filters.Normalized()
	if err := filter.Validate(filters); err != nil {
		return nil, err
	}
	return s.engine.Records(filters), nil
}

func limit(buckets []models.Bucket, n int) []models.Bucket {
	if n > 0 && len(buckets) > n {
		buckets = buckets[:n]
	}
	return append([]models.Bucket{}, buckets...)
}
