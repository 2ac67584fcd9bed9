// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report aggregates analyzed papers into daily reports and
// persists them. The SQLite store holds one report per date plus a
// paper history table used for cross-run deduplication.
package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Store manages the reports SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the reports database at cfg.DBPath,
// creating parent directories and the schema as needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store db_path not configured")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating reports directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			date TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			generated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper_history (
			identity TEXT PRIMARY KEY,
			title TEXT,
			source TEXT,
			keywords TEXT,
			first_seen TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_first_seen ON paper_history(first_seen)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save persists a report, replacing any existing report for the same
// date in a single transaction.
func (s *Store) Save(report *types.DailyReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reports (date, payload, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET payload = excluded.payload, generated_at = excluded.generated_at`,
		report.Date, string(payload), report.GeneratedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", report.Date, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

// Load returns the report for the given date, or (nil, nil) when no
// report exists for that date.
func (s *Store) Load(date string) (*types.DailyReport, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM reports WHERE date = ?`, date).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading report for %s: %w", date, err)
	}

	var report types.DailyReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decoding report for %s: %w", date, err)
	}
	return &report, nil
}

// Dates returns all dates with a stored report, most recent first.
func (s *Store) Dates() ([]string, error) {
	rows, err := s.db.Query(`SELECT date FROM reports ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing report dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Latest returns the most recent report, or (nil, nil) when the store
// is empty.
func (s *Store) Latest() (*types.DailyReport, error) {
	var date string
	err := s.db.QueryRow(`SELECT date FROM reports ORDER BY date DESC LIMIT 1`).Scan(&date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest report: %w", err)
	}
	return s.Load(date)
}

// NewOnly filters candidates down to those never recorded in the paper
// history, returning the survivors and the count of previously seen
// papers.
func (s *Store) NewOnly(candidates []types.CandidatePaper) ([]types.CandidatePaper, int, error) {
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	fresh := make([]types.CandidatePaper, 0, len(candidates))
	seen := 0
	for _, c := range candidates {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM paper_history WHERE identity = ?`, c.Identity).Scan(&exists)
		if err == sql.ErrNoRows {
			fresh = append(fresh, c)
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("checking history for %s: %w", c.Identity, err)
		}
		seen++
	}
	return fresh, seen, nil
}

// Record adds matched papers to the history so later runs skip them.
// Keywords are stored as a JSON array for inspection only.
func (s *Store) Record(papers []types.MatchedPaper, now time.Time) error {
	if len(papers) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO paper_history (identity, title, source, keywords, first_seen)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()

	ts := now.UTC().Format(time.RFC3339)
	for _, p := range papers {
		keywords, err := json.Marshal(p.MatchedKeywords)
		if err != nil {
			return fmt.Errorf("encoding keywords: %w", err)
		}
		if _, err := stmt.Exec(p.Identity, p.Title, p.SourceName, string(keywords), ts); err != nil {
			return fmt.Errorf("recording %s: %w", p.Identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

// Cleanup removes history entries older than retentionDays and returns
// the number deleted. A non-positive retention disables cleanup.
func (s *Store) Cleanup(retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM paper_history WHERE first_seen < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// HistoryCount reports the number of papers in the history table.
func (s *Store) HistoryCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM paper_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
