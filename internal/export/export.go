// Package export writes filtered tables as CSV downloads and publishes them
// to an FTP drop.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

const ContentType = "text/csv; charset=utf-8"

// FileName names an export after its domain and date range. Without a range
// the file is just <domain>.csv; an open end is written as "start" or "end".
func FileName(d models.Domain, c filter.Constraints) string {
	if c.From.IsZero() && c.To.IsZero() {
		return string(d) + ".csv"
	}
	from, to := "start", "end"
	if !c.From.IsZero() {
		from = c.From.Format(table.DateLayout)
	}
	if !c.To.IsZero() {
		to = c.To.Format(table.DateLayout)
	}
	return fmt.Sprintf("%s_%s_%s.csv", d, from, to)
}

// Write encodes t as UTF-8 CSV with a header row, in the table's column
// order.
func Write(w io.Writer, t *table.Table) error {
	if err := t.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Bytes returns the CSV encoding of t.
func Bytes(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsStdout reports whether an output path means standard output.
func IsStdout(path string) bool {
	return path == "" || strings.TrimSpace(path) == "-"
}
