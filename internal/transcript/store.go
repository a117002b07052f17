// Package transcript is an append-only sink for (timestamp, speaker,
// word) rows produced by the out-of-scope speech pipeline, queryable by
// the CLI and operator tooling.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Row is one transcript entry.
type Row struct {
	Timestamp time.Time
	Speaker   string
	Word      string
}

// Store wraps a single SQLite database holding the one append-only
// "words" table; there is no migration framework since the schema never
// changes shape.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer append-only table

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transcript: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS words (
		timestamp TEXT NOT NULL,
		speaker   TEXT NOT NULL,
		word      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_words_timestamp ON words(timestamp);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("transcript: migrate schema: %w", err)
	}
	return nil
}

// timestampLayout is a fixed-width RFC 3339 layout, so the text order of
// stored timestamps is their chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Append inserts a single transcript row.
func (s *Store) Append(ctx context.Context, ts time.Time, speaker, word string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO words (timestamp, speaker, word) VALUES (?, ?, ?)`,
		ts.UTC().Format(timestampLayout), speaker, word,
	)
	if err != nil {
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// Query returns every row with timestamp in [from, to), ordered
// chronologically.
func (s *Store) Query(ctx context.Context, from, to time.Time) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, speaker, word FROM words WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp`,
		from.UTC().Format(timestampLayout), to.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("transcript: query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var ts string
		if err := rows.Scan(&ts, &r.Speaker, &r.Word); err != nil {
			return nil, fmt.Errorf("transcript: scan row: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("transcript: parse timestamp %q: %w", ts, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
