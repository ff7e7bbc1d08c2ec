package normalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/gateway/httpclient"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

const (
	EventDatasetLoaded    = "dataset.loaded"
	EventDatasetSubmitted = "dataset.submitted"

	serviceName = "noshow-analytics"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service parses submitted datasets and installs them in the engine.
type Service struct {
	transformer *Transformer
	engine      *pipeline.Engine
	validator   *Validator
	repo        *Repository
	publisher   Publisher
	client      *http.Client
	attempts    int
	maxBytes    int64
}

type Option func(*Service)

func WithRepository(repo *Repository) Option {
	return func(s *Service) { s.repo = repo }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithHTTPClient sets the client and attempt count used by Fetch.
func WithHTTPClient(client *http.Client, attempts int) Option {
	return func(s *Service) {
		s.client = client
		s.attempts = attempts
	}
}

func WithMaxBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

func NewService(transformer *Transformer, engine *pipeline.Engine, opts ...Option) *Service {
	if transformer == nil {
		transformer = NewTransformer(DefaultCatalog())
	}
	s := &Service{
		transformer: transformer,
		engine:      engine,
		validator:   NewValidator(),
		client:      httpclient.New(30 * time.Second),
		attempts:    3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load parses r and replaces the engine's dataset. Audit and event failures
// are logged; the dataset stays loaded.
func (s *Service) Load(ctx context.Context, source string, r io.Reader) (models.DatasetSummary, error) {
	if err := s.validator.ValidateSource(source); err != nil {
		metrics.ObserveDatasetRejected()
		return models.DatasetSummary{}, err
	}
	if r == nil {
		metrics.ObserveDatasetRejected()
		return models.DatasetSummary{}, ValidationError{reason: errEmptyData}
	}
	if s.maxBytes > 0 {
		body, err := s.readBody(r)
		if err != nil {
			metrics.ObserveDatasetRejected()
			return models.DatasetSummary{}, err
		}
		r = bytes.NewReader(body)
	}

	result, err := s.transformer.Parse(r)
	if err != nil {
		metrics.ObserveDatasetRejected()
		return models.DatasetSummary{}, ValidationError{reason: fmt.Errorf("parse dataset: %w", err)}
	}

	ds := pipeline.NewDataset(source, result.Records, result.Report)
	s.engine.Load(ds)
	summary := ds.Summary()
	metrics.ObserveDatasetLoad(result.Report.RowsRead, result.Report.InvalidRows, result.Report.RowsKept)

	log := logger.Log.WithFields(map[string]interface{}{
		"dataset_id":   summary.ID,
		"source":       source,
		"rows_read":    result.Report.RowsRead,
		"rows_kept":    result.Report.RowsKept,
		"invalid_rows": result.Report.InvalidRows,
	})
	log.Info("Dataset loaded")

	if s.repo != nil {
		if err := s.repo.Create(ctx, newLoadModel(summary)); err != nil {
			log.WithError(err).Error("failed to persist dataset load")
		}
	}

	if s.publisher != nil {
		payload := map[string]interface{}{
			"dataset_id":   summary.ID,
			"source":       summary.Source,
			"records":      summary.Records,
			"rows_read":    result.Report.RowsRead,
			"invalid_rows": result.Report.InvalidRows,
			"loaded_at":    summary.LoadedAt,
		}
		if err := s.publisher.PublishEvent(ctx, EventDatasetLoaded, serviceName, payload); err != nil {
			log.WithError(err).Error("failed to publish dataset event")
		}
	}

	return summary, nil
}

// Fetch downloads a delimited file and loads it. Transport failures, 429 and
// 5xx responses are retried; other 4xx responses are validation errors.
func (s *Service) Fetch(ctx context.Context, rawURL string) (models.DatasetSummary, error) {
	u, err := s.validator.ValidateURL(rawURL)
	if err != nil {
		metrics.ObserveDatasetRejected()
		return models.DatasetSummary{}, err
	}

	var body []byte
	err = httpclient.Retry(ctx, s.attempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return httpclient.Permanent(err)
		}
		req.Header.Set("Accept", "text/csv, text/tab-separated-values, text/plain")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := httpclient.CheckStatus(resp); err != nil {
			return fmt.Errorf("fetch %s: %w", u.Redacted(), err)
		}

		body, err = s.readBody(resp.Body)
		if IsValidationError(err) {
			return httpclient.Permanent(err)
		}
		return err
	})
	if err != nil {
		metrics.ObserveDatasetRejected()
		logger.Log.WithError(err).WithField("url", u.Redacted()).Warn("dataset fetch failed")
		if httpclient.IsPermanent(err) {
			return models.DatasetSummary{}, ValidationError{reason: err}
		}
		return models.DatasetSummary{}, err
	}

	return s.Load(ctx, u.Redacted(), bytes.NewReader(body))
}

// readBody buffers r up to maxBytes. Input beyond the limit is rejected
// rather than truncated, so a partial last row is never loaded.
func (s *Service) readBody(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, ValidationError{reason: err}
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ValidationError{reason: &http.MaxBytesError{Limit: s.maxBytes}}
	}
	return data, nil
}

// HandleSubmission consumes dataset.submitted events carrying a "url".
func (s *Service) HandleSubmission(ctx context.Context, event models.Event) error {
	if event.Type != EventDatasetSubmitted {
		return nil
	}
	raw, _ := event.Data["url"].(string)
	_, err := s.Fetch(ctx, raw)
	if IsValidationError(err) {
		// Redelivery cannot fix a bad submission.
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("discarding dataset submission")
		return nil
	}
	return err
}

// History lists recent loads from the audit table, or nothing without one.
func (s *Service) History(ctx context.Context, limit int) ([]LoadModel, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.List(ctx, limit)
}
