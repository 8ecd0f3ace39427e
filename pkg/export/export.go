package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/taxisim/core/metrics"
)

// WriteJSON writes any metrics payload to w in JSON format.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

// WriteAggregatesCSV writes the batch records to w as CSV, one row per batch,
// with a fixed column order.
func WriteAggregatesCSV(w io.Writer, records []metrics.BatchRecord) error {
	cw := csv.NewWriter(w)
	header := append([]string{"timestamp"}, metrics.FieldOrder...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		fields := rec.Fields()
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(rec.Timestamp))
		for _, name := range metrics.FieldOrder {
			row = append(row, strconv.FormatFloat(fields[name], 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
