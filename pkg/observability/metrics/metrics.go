package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	datasetsLoaded   atomic.Int64
	datasetsRejected atomic.Int64
	rowsRead         atomic.Int64
	rowsInvalid      atomic.Int64
	currentRecords   atomic.Int64
	viewCacheHits    atomic.Int64
	viewCacheMisses  atomic.Int64
	memoHits         atomic.Int64
	memoMisses       atomic.Int64
	memoEntries      atomic.Int64
)

func ObserveDatasetLoad(read, invalid, kept int) {
	datasetsLoaded.Add(1)
	rowsRead.Add(int64(read))
	rowsInvalid.Add(int64(invalid))
	currentRecords.Store(int64(kept))
}

func ObserveDatasetRejected() {
	datasetsRejected.Add(1)
}

func ObserveViewCache(hit bool) {
	if hit {
		viewCacheHits.Add(1)
		return
	}
	viewCacheMisses.Add(1)
}

// ObserveMemo records the engine's memo counters as of the latest scrape.
func ObserveMemo(hits, misses, entries int) {
	memoHits.Store(int64(hits))
	memoMisses.Store(int64(misses))
	memoEntries.Store(int64(entries))
}

type metric struct {
	name  string
	help  string
	kind  string
	value *atomic.Int64
}

var registry = []metric{
	{"noshow_datasets_loaded_total", "Number of datasets installed in the engine.", "counter", &datasetsLoaded},
	{"noshow_datasets_rejected_total", "Number of dataset submissions rejected before load.", "counter", &datasetsRejected},
	{"noshow_rows_read_total", "Number of data rows read across all loads.", "counter", &rowsRead},
	{"noshow_rows_invalid_total", "Number of rows skipped as structurally invalid.", "counter", &rowsInvalid},
	{"noshow_dataset_records", "Number of records in the current dataset.", "gauge", &currentRecords},
	{"noshow_view_cache_hits_total", "Number of dashboard views served from the shared cache.", "counter", &viewCacheHits},
	{"noshow_view_cache_misses_total", "Number of dashboard views computed after a cache miss.", "counter", &viewCacheMisses},
	{"noshow_engine_memo_hits", "Engine stage memo hits since the last load.", "gauge", &memoHits},
	{"noshow_engine_memo_misses", "Engine stage memo misses since the last load.", "gauge", &memoMisses},
	{"noshow_engine_memo_entries", "Engine stage memo entries currently held.", "gauge", &memoEntries},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeText(w)
}

func writeText(w io.Writer) {
	for _, m := range registry {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n", m.name, m.value.Load())
	}
}
