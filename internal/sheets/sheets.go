// Package sheets fetches worksheets from the upstream spreadsheet.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gridhall/ghatz/internal/table"
)

// ErrWorksheetNotFound means the spreadsheet has no worksheet by that name.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// ConnectionError means the credential is invalid or the upstream is
// unreachable. It stops the whole page rather than rendering partial data.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("spreadsheet unavailable: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Worksheet holds the cell values of one worksheet. The first row is the
// header.
type Worksheet struct {
	Title  string
	Values [][]any
}

// Records maps every row after the header onto the header names.
func (w *Worksheet) Records() []table.Record {
	if w == nil || len(w.Values) < 2 {
		return nil
	}
	header := make([]string, len(w.Values[0]))
	for i, h := range w.Values[0] {
		header[i] = fmt.Sprint(h)
	}
	out := make([]table.Record, 0, len(w.Values)-1)
	for _, row := range w.Values[1:] {
		out = append(out, table.FromCells(header, row))
	}
	return out
}

// Payload is the JSON snapshot kept in the load audit.
func (w *Worksheet) Payload() ([]byte, error) {
	return json.Marshal(w.Values)
}

// Source fetches worksheets by title.
type Source interface {
	Fetch(ctx context.Context, title string) (*Worksheet, error)
	// Kind names the backend in load audits.
	Kind() string
}
