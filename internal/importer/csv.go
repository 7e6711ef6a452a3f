package importer

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
	"github.com/varoOP/cardvault/internal/domain"
)

// Record is one data line of an import file. Err is set when the line could
// not be read as CSV.
type Record struct {
	Row domain.Row
	Err error
}

// ParseCSV reads a header row followed by data rows. Short rows leave the
// missing columns empty and stray quotes are kept as text. A malformed data
// line becomes a Record with Err set; only a bad header or a read failure
// is returned as an error.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, errors.Wrap(err, "failed to read header row")
	}

	var records []Record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				records = append(records, Record{Err: err})
				continue
			}
			return nil, errors.Wrap(err, "failed to read row")
		}

		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			} else {
				row[col] = ""
			}
		}
		records = append(records, Record{Row: row})
	}

	return records, nil
}
