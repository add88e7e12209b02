package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/idchenko/phishset/app/features"
)

// Codec encodes the dataset to and from its CSV snapshot form, the
// interchange format with the remote store.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		if err := w.Write(row.Values()); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Codec) Decode(data []byte) ([]Row, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := Header()
	if len(records[0]) != len(header) {
		return nil, fmt.Errorf("snapshot has %d columns, schema %s expects %d",
			len(records[0]), features.SchemaVersion, len(header))
	}

	featureCount := len(features.FieldNames())
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		rec, err := features.ParseValues(record[:featureCount])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		result, err := strconv.Atoi(record[featureCount+2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid result value %q", i+1, record[featureCount+2])
		}

		rows = append(rows, Row{
			Features:         rec,
			URL:              record[featureCount],
			VisibleText:      record[featureCount+1],
			Result:           result,
			FetchDate:        record[featureCount+3],
			Target:           record[featureCount+4],
			VerificationTime: record[featureCount+5],
		})
	}

	return rows, nil
}
