package normalizer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	data   []map[string]interface{}
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
	return nil
}

const smallExport = "Age,SMS_received,NoShow,WaitingDays\n25,1,1,3\n65,0,0,20\n"

func TestServiceLoadInstallsDataset(t *testing.T) {
	engine := pipeline.NewEngine(nil)
	pub := &recordingPublisher{}
	svc := NewService(nil, engine, WithPublisher(pub))

	summary, err := svc.Load(context.Background(), "upload.csv", strings.NewReader(smallExport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Records != 2 || summary.ID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	current, err := engine.Current()
	if err != nil || current.ID != summary.ID {
		t.Fatalf("expected engine to hold the new dataset, got %+v (%v)", current, err)
	}
	if kpis := engine.KPIs(models.DefaultFilters()); kpis.Total != 2 || kpis.NoShowRate != 50 {
		t.Fatalf("unexpected kpis %+v", kpis)
	}

	if len(pub.events) != 1 || pub.events[0] != EventDatasetLoaded {
		t.Fatalf("expected one dataset.loaded event, got %v", pub.events)
	}
	if pub.data[0]["dataset_id"] != summary.ID {
		t.Fatalf("expected event to carry dataset id, got %v", pub.data[0])
	}

	history, err := svc.History(context.Background(), 10)
	if err != nil || history != nil {
		t.Fatalf("expected no history without repository, got %v (%v)", history, err)
	}
}

func TestServiceLoadRejectsMissingSource(t *testing.T) {
	svc := NewService(nil, pipeline.NewEngine(nil))
	if _, err := svc.Load(context.Background(), " ", strings.NewReader(smallExport)); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Load(context.Background(), "upload.csv", nil); !IsValidationError(err) {
		t.Fatalf("expected validation error for nil body, got %v", err)
	}
}

func TestServiceLoadRejectsOversizeInput(t *testing.T) {
	engine := pipeline.NewEngine(nil)
	svc := NewService(nil, engine, WithMaxBytes(int64(len(smallExport)-1)))

	_, err := svc.Load(context.Background(), "upload.csv", strings.NewReader(smallExport))
	var tooLarge *http.MaxBytesError
	if !IsValidationError(err) || !errors.As(err, &tooLarge) {
		t.Fatalf("expected size validation error, got %v", err)
	}
	if _, err := engine.Current(); !errors.Is(err, pipeline.ErrNoDataset) {
		t.Fatalf("expected no dataset after rejected load, got %v", err)
	}

	exact := NewService(nil, engine, WithMaxBytes(int64(len(smallExport))))
	summary, err := exact.Load(context.Background(), "upload.csv", strings.NewReader(smallExport))
	if err != nil || summary.Records != 2 {
		t.Fatalf("expected input at the limit to load, got %+v (%v)", summary, err)
	}
}

func TestServiceFetchRejectsOversizeResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(smallExport))
	}))
	defer srv.Close()

	svc := NewService(nil, pipeline.NewEngine(nil), WithHTTPClient(srv.Client(), 3), WithMaxBytes(10))
	_, err := svc.Fetch(context.Background(), srv.URL+"/big.csv")
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected oversize response not to be retried, got %d calls", calls.Load())
	}
}

func TestServiceFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(smallExport))
	}))
	defer srv.Close()

	engine := pipeline.NewEngine(nil)
	svc := NewService(nil, engine, WithHTTPClient(srv.Client(), 3))

	summary, err := svc.Fetch(context.Background(), srv.URL+"/export.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
	if summary.Records != 2 {
		t.Fatalf("expected 2 records, got %d", summary.Records)
	}
}

func TestServiceFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := NewService(nil, pipeline.NewEngine(nil), WithHTTPClient(srv.Client(), 3))
	_, err := svc.Fetch(context.Background(), srv.URL+"/missing.csv")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestHandleSubmission(t *testing.T) {
	svc := NewService(nil, pipeline.NewEngine(nil))

	bad := models.Event{ID: "evt-1", Type: EventDatasetSubmitted, Data: map[string]interface{}{"url": "ftp://example.com/a.csv"}}
	if err := svc.HandleSubmission(context.Background(), bad); err != nil {
		t.Fatalf("expected invalid submission to be discarded, got %v", err)
	}

	other := models.Event{ID: "evt-2", Type: EventDatasetLoaded}
	if err := svc.HandleSubmission(context.Background(), other); err != nil {
		t.Fatalf("expected unrelated event to be ignored, got %v", err)
	}
}

func TestValidateURL(t *testing.T) {
	v := NewValidator()
	cases := map[string]bool{
		"https://data.example.org/noshow.csv": true,
		"http://localhost:8080/a.csv":         true,
		"":                                    false,
		"file:///etc/passwd":                  false,
		"https://":                            false,
	}
	for raw, ok := range cases {
		_, err := v.ValidateURL(raw)
		if ok && err != nil {
			t.Fatalf("expected %q to be accepted, got %v", raw, err)
		}
		if !ok && !IsValidationError(err) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}
