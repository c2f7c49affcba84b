package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/participium/civimap/internal/model"
)

// Store keeps a local snapshot of the last fetched report list. When the
// backend is unreachable the map falls back to this stale set instead of
// going blank.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		category_id INTEGER,
		category_name TEXT,
		lat REAL,
		lng REAL,
		address TEXT,
		created_at TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_coords ON reports(lat, lng);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// ReplaceReports swaps the snapshot wholesale for the given list. The
// report list is replaced on every refetch, never patched incrementally.
func (s *Store) ReplaceReports(reports []model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM reports"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reports
		(id, title, description, status, category_id, category_name, lat, lng, address, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		_, err := stmt.Exec(
			r.ID, r.Title, r.Description, string(r.Status),
			r.Category.ID, r.Category.Name,
			r.Location.Lat, r.Location.Lng, r.Address, r.CreatedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting report %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// LoadReports returns the snapshot in insertion order.
func (s *Store) LoadReports() ([]model.Report, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, status, category_id, category_name,
		       lat, lng, address, created_at
		FROM reports ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var status string
		err := rows.Scan(
			&r.ID, &r.Title, &r.Description, &status,
			&r.Category.ID, &r.Category.Name,
			&r.Location.Lat, &r.Location.Lng, &r.Address, &r.CreatedAt,
		)
		if err != nil {
			continue
		}
		r.Status = model.Status(status)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
