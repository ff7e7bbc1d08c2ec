package normalizer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is the normalized output of one parse.
type Result struct {
	Records []models.AppointmentRecord
	Report  models.LoadReport
}

// Parse reads delimited text with a header row. Quoting is lenient, so stray
// quotes stay in the cell text; rows the csv reader still rejects are counted
// in Report.InvalidRows and skipped. Only header and stream read failures are
// returned as errors. Empty input yields an empty result.
func (t *Transformer) Parse(r io.Reader) (*Result, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, utf8BOM) {
		br.Discard(3)
	}

	comma := sniffDelimiter(br)
	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	result := &Result{Report: models.LoadReport{Columns: map[string]string{}}}

	header, err := cr.Read()
	if err == io.EOF {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := t.Index(header)
	result.Report.Columns = index.Columns()

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.Report.RowsRead++
			result.Report.InvalidRows++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", result.Report.RowsRead+1, err)
		}
		result.Report.RowsRead++
		if blankRecord(record) {
			continue
		}
		result.Records = append(result.Records, t.Transform(index.Row(record)))
	}
	result.Report.RowsKept = len(result.Records)
	return result, nil
}

// Parse normalizes r with the default alias catalog.
func Parse(r io.Reader) (*Result, error) {
	return NewTransformer(DefaultCatalog()).Parse(r)
}

func ParseString(text string) (*Result, error) {
	return Parse(strings.NewReader(text))
}

// sniffDelimiter looks at the header line and picks tab or semicolon when the
// line has no commas but does contain one of those.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(br.Size())
	if idx := bytes.IndexByte(peek, '\n'); idx >= 0 {
		peek = peek[:idx]
	}
	if bytes.IndexByte(peek, ',') >= 0 {
		return ','
	}
	if bytes.IndexByte(peek, '\t') >= 0 {
		return '\t'
	}
	if bytes.IndexByte(peek, ';') >= 0 {
		return ';'
	}
	return ','
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}
