package watchlist

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/anpr-ai/go-anpr/colors"
)

// SQLiteStore persists watchlist entries in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the watchlist database at path.
// Use ":memory:" for an ephemeral store in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open watchlist db")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS watchlist (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plate TEXT NOT NULL DEFAULT '',
			vehicle_type TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create watchlist schema")
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAllEntries returns every watchlist entry.
func (s *SQLiteStore) GetAllEntries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, plate, vehicle_type, color FROM watchlist ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query watchlist")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var color string
		if err := rows.Scan(&e.ID, &e.Plate, &e.VehicleType, &color); err != nil {
			return nil, errors.Wrap(err, "scan watchlist row")
		}
		e.Color = colors.Color(color)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add inserts an entry and returns its id.
func (s *SQLiteStore) Add(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (plate, vehicle_type, color) VALUES (?, ?, ?)`,
		e.Plate, e.VehicleType, string(e.Color))
	if err != nil {
		return 0, errors.Wrap(err, "insert watchlist entry")
	}
	return res.LastInsertId()
}

// Remove deletes an entry by id. Removing a missing id is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ?`, id)
	return errors.Wrap(err, "delete watchlist entry")
}
