package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

func sampleRecords() []models.AppointmentRecord {
	age := 34.0
	noShow := 1
	waiting := 12
	at := time.Date(2016, 4, 27, 0, 0, 0, 0, time.UTC)
	return []models.AppointmentRecord{
		{Age: &age, AgeGroup: "30-39", AppointmentAt: &at, SMSReceived: "1", NoShow: &noShow, WaitingDays: &waiting, Week: "2016-04-25"},
		{AgeGroup: models.Unknown, SMSReceived: "0", Week: models.Unknown},
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := NewParquetWriter(f, "ds-1")
	if _, err := w.Write(sampleRecords()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if w.Count() != 2 {
		t.Fatalf("expected count 2, got %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	rows, err := parquet.ReadFile[RecordRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.DatasetID != "ds-1" || first.AgeGroup != "30-39" || first.AppointmentAt != "2016-04-27T00:00:00Z" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.NoShow == nil || *first.NoShow != 1 || first.WaitingDays == nil || *first.WaitingDays != 12 {
		t.Fatalf("unexpected outcome columns %+v", first)
	}
	second := rows[1]
	if second.Age != nil || second.NoShow != nil || second.WaitingDays != nil {
		t.Fatalf("expected nulls for absent values, got %+v", second)
	}
}

func TestCopyRowsKeepsColumnOrder(t *testing.T) {
	rows := CopyRows("ds-1", sampleRecords())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(appointmentColumns) {
		t.Fatalf("expected %d values, got %d", len(appointmentColumns), len(rows[0]))
	}
	if rows[0][0] != "ds-1" || rows[0][8] != "2016-04-25" {
		t.Fatalf("unexpected row %v", rows[0])
	}
	if p, ok := rows[1][6].(*int); !ok || p != nil {
		t.Fatalf("expected nil no-show pointer, got %#v", rows[1][6])
	}
}
