package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gridhall/ghatz/internal/metrics"
)

// FileSource reads worksheets exported as <dir>/<title>.csv.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (f *FileSource) Kind() string { return "csv" }

func (f *FileSource) Fetch(ctx context.Context, title string) (*Worksheet, error) {
	start := time.Now()
	ws, err := f.fetch(ctx, title)
	metrics.WorksheetFetchLatency.WithLabelValues(title).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.WorksheetFetchesTotal.WithLabelValues(title, status).Inc()
	return ws, err
}

func (f *FileSource) fetch(ctx context.Context, title string) (*Worksheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(f.Dir); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", f.Dir)
		}
		return nil, &ConnectionError{Op: "open " + f.Dir, Err: err}
	}

	file, err := os.Open(filepath.Join(f.Dir, title+".csv"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", title, ErrWorksheetNotFound)
	}
	if err != nil {
		return nil, &ConnectionError{Op: "open " + title, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", title, err)
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return &Worksheet{Title: title, Values: values}, nil
}
