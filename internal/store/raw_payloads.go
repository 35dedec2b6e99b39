package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// Worksheet snapshots are kept gzipped and keyed by content hash, so an
// unchanged worksheet fetched on every refresh is stored once.

// RawPayloadStats summarizes stored snapshots.
type RawPayloadStats struct {
	TotalCount     int            `json:"total_count"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	CountByDomain  map[string]int `json:"count_by_domain"`
}

// StoreRawPayload saves a snapshot of a worksheet's raw cells. It returns 0
// without error when an identical snapshot already exists.
func (s *Store) StoreRawPayload(runID *int64, domain, worksheet string, payload []byte) (int64, error) {
	compressed, err := gzipBytes(payload)
	if err != nil {
		return 0, err
	}
	sum := sha256.Sum256(payload)

	var run sql.NullInt64
	if runID != nil {
		run = sql.NullInt64{Int64: *runID, Valid: true}
	}
	res, err := s.db.Exec(`
		INSERT INTO raw_payloads (load_run_id, fetched_at, domain, worksheet, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payload_hash) DO NOTHING
	`, run, time.Now().UTC(), domain, worksheet, compressed, hex.EncodeToString(sum[:]))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot %s: %w", worksheet, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRawPayload returns the decompressed snapshot with the given id.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	if err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).Scan(&compressed); err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", id, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	rows, err := s.db.Query(`
		SELECT domain, COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0)
		FROM raw_payloads GROUP BY domain
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &RawPayloadStats{CountByDomain: map[string]int{}}
	for rows.Next() {
		var (
			domain string
			n      int
			size   int64
		)
		if err := rows.Scan(&domain, &n, &size); err != nil {
			return nil, err
		}
		stats.CountByDomain[domain] = n
		stats.TotalCount += n
		stats.TotalSizeBytes += size
	}
	return stats, rows.Err()
}

// CleanupOldRawPayloads deletes snapshots fetched more than days ago and
// returns how many were removed.
func (s *Store) CleanupOldRawPayloads(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
