// Package store persists graded exam reports, their audit events, and the
// session state around them in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrodas/legalexam/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		student_name TEXT NOT NULL,
		student_carne TEXT NOT NULL,
		grand_total REAL NOT NULL,
		max_possible REAL NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_time DATETIME NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (report_id) REFERENCES results(id)
	);

	CREATE TABLE IF NOT EXISTS student_sessions (
		token TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		carne TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		submitted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport persists a complete report. The JSON blob keeps the full
// nested structure (per-question breakdowns, rubric sub-scores, feedback)
// for later instructor audit.
func (s *Store) SaveReport(report *model.ExamReport) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO results (id, created_at, student_name, student_carne, grand_total, max_possible, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, time.Now(), report.StudentName, report.StudentCarne,
		report.GrandTotal, report.MaxPossible, string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport returns a stored report with its creation time.
func (s *Store) GetReport(id string) (*model.ExamReport, time.Time, error) {
	var blob string
	var createdAt time.Time
	err := s.db.QueryRow(
		`SELECT report_json, created_at FROM results WHERE id = ?`, id,
	).Scan(&blob, &createdAt)
	if err != nil {
		return nil, time.Time{}, err
	}
	var report model.ExamReport
	if err := json.Unmarshal([]byte(blob), &report); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal report %s: %w", id, err)
	}
	return &report, createdAt, nil
}

// ListReports returns summaries of all stored reports, newest first.
func (s *Store) ListReports() ([]model.ReportSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, student_carne, grand_total, max_possible, created_at
		 FROM results ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var summaries []model.ReportSummary
	for rows.Next() {
		var r model.ReportSummary
		if err := rows.Scan(&r.ID, &r.StudentName, &r.StudentCarne, &r.GrandTotal, &r.MaxPossible, &r.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// AverageScore returns the mean grand total over all stored reports, or
// zero when none exist.
func (s *Store) AverageScore() (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRow(`SELECT AVG(grand_total) FROM results`).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// ReportCount returns the number of stored reports.
func (s *Store) ReportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}

// AddEvent appends an audit event to a stored report.
func (s *Store) AddEvent(ev model.AuditEvent) (int64, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO events (report_id, event_type, event_time, details) VALUES (?, ?, ?, ?)`,
		ev.ReportID, ev.Type, at, ev.Details,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetEvents returns all audit events for a report in insertion order.
func (s *Store) GetEvents(reportID string) ([]model.AuditEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, report_id, event_type, event_time, details FROM events WHERE report_id = ? ORDER BY id`,
		reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.AuditEvent
	for rows.Next() {
		var ev model.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.ReportID, &ev.Type, &ev.At, &ev.Details); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
