package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheusIncludesObservedCounts(t *testing.T) {
	before := rowsInvalid.Load()
	ObserveDatasetLoad(10, 2, 8)
	ObserveViewCache(true)

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(body, "noshow_dataset_records 8\n") {
		t.Fatalf("expected current record gauge, got:\n%s", body)
	}
	if rowsInvalid.Load() != before+2 {
		t.Fatalf("expected invalid rows to grow by 2")
	}
	if !strings.Contains(body, "# TYPE noshow_view_cache_hits_total counter") {
		t.Fatalf("expected type line for cache hits, got:\n%s", body)
	}
}
