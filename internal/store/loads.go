package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// LoadRun is one fetch-and-clean of a worksheet.
type LoadRun struct {
	ID            int64
	CorrelationID string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	Domain        string
	Worksheet     string
	Source        string // "sheets", "csv"
	RowsIn        sql.NullInt64
	RowsKept      sql.NullInt64
	RowsDropped   sql.NullInt64
	Warnings      sql.NullInt64
	Success       bool
	ErrorMessage  sql.NullString
}

// StartLoadRun creates a new load run record and returns it.
func (s *Store) StartLoadRun(domain, worksheet, source string) (*LoadRun, error) {
	run := &LoadRun{
		CorrelationID: uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		Domain:        domain,
		Worksheet:     worksheet,
		Source:        source,
	}

	result, err := s.db.Exec(`
		INSERT INTO load_runs (correlation_id, started_at, domain, worksheet, source, success)
		VALUES (?, ?, ?, ?, ?, FALSE)
	`, run.CorrelationID, run.StartedAt, run.Domain, run.Worksheet, run.Source)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteLoadRun updates the load run with results.
func (s *Store) CompleteLoadRun(run *LoadRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE load_runs SET
			finished_at = ?,
			rows_in = ?,
			rows_kept = ?,
			rows_dropped = ?,
			warnings = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.RowsIn, run.RowsKept, run.RowsDropped,
		run.Warnings, run.Success, run.ErrorMessage, run.ID)
	return err
}

// LoadHealthSummary is one day of load runs for a domain.
type LoadHealthSummary struct {
	Date        string `json:"date"`
	Domain      string `json:"domain"`
	Source      string `json:"source"`
	TotalRuns   int    `json:"total_runs"`
	SuccessRuns int    `json:"success_runs"`
	FailedRuns  int    `json:"failed_runs"`
	RowsKept    int64  `json:"rows_kept"`
	RowsDropped int64  `json:"rows_dropped"`
}

// GetLoadHealth returns load health summaries for the last N days.
func (s *Store) GetLoadHealth(days int) ([]LoadHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			domain,
			source,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(SUM(rows_kept), 0) as rows_kept,
			COALESCE(SUM(rows_dropped), 0) as rows_dropped
		FROM load_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, domain, source
		ORDER BY date DESC, domain, source
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LoadHealthSummary
	for rows.Next() {
		var h LoadHealthSummary
		if err := rows.Scan(&h.Date, &h.Domain, &h.Source, &h.TotalRuns,
			&h.SuccessRuns, &h.FailedRuns, &h.RowsKept, &h.RowsDropped); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

const loadRunColumns = `id, correlation_id, started_at, finished_at, domain, worksheet, source,
	rows_in, rows_kept, rows_dropped, warnings, success, error_message`

func scanLoadRun(sc interface{ Scan(...any) error }) (LoadRun, error) {
	var r LoadRun
	err := sc.Scan(&r.ID, &r.CorrelationID, &r.StartedAt, &r.FinishedAt, &r.Domain, &r.Worksheet,
		&r.Source, &r.RowsIn, &r.RowsKept, &r.RowsDropped, &r.Warnings, &r.Success, &r.ErrorMessage)
	return r, err
}

// GetRecentLoadErrors returns recent failed load runs.
func (s *Store) GetRecentLoadErrors(limit int) ([]LoadRun, error) {
	rows, err := s.db.Query(`
		SELECT `+loadRunColumns+`
		FROM load_runs
		WHERE success = FALSE AND finished_at IS NOT NULL
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LoadRun
	for rows.Next() {
		r, err := scanLoadRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LatestLoadRuns returns the most recent finished run per domain.
func (s *Store) LatestLoadRuns() (map[string]LoadRun, error) {
	rows, err := s.db.Query(`
		SELECT ` + loadRunColumns + `
		FROM load_runs
		WHERE id IN (
			SELECT MAX(id) FROM load_runs WHERE finished_at IS NOT NULL GROUP BY domain
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]LoadRun)
	for rows.Next() {
		r, err := scanLoadRun(rows)
		if err != nil {
			return nil, err
		}
		out[r.Domain] = r
	}
	return out, rows.Err()
}
