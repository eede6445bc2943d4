// Package drift persists response fields that servers return but route
// schemas do not declare. A Store satisfies apiclient.DriftReporter.
package drift

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mark3labs/routeclient/apiclient"
)

// Entry is one undeclared key observed on a route.
type Entry struct {
	Route     string
	Method    string
	Status    int
	Key       string
	Count     int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// Store records drift in a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ apiclient.DriftReporter = (*Store)(nil)

// Open opens (or creates) the database at dsn and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("drift: open %s: %w", dsn, err)
	}
	// Writes are serialized through a single connection.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Init enables WAL and creates the additional_keys table if needed. Open
// calls it; it is safe to call again.
func (s *Store) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("drift: enable WAL: %w", err)
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS additional_keys (
		route TEXT NOT NULL,
		method TEXT NOT NULL,
		status INTEGER NOT NULL,
		key TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 1,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		PRIMARY KEY(route, method, status, key)
	);`)
	if err != nil {
		return fmt.Errorf("drift: create schema: %w", err)
	}
	return nil
}

// ReportAdditionalKeys upserts one row per key, bumping its count.
func (s *Store) ReportAdditionalKeys(ctx context.Context, d apiclient.Drift) error {
	if len(d.Keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drift: begin: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO additional_keys(route,method,status,key,count,first_seen,last_seen)
		VALUES(?,?,?,?,1,?,?)
		ON CONFLICT(route,method,status,key) DO UPDATE SET count=count+1, last_seen=excluded.last_seen`)
	if err != nil {
		return fmt.Errorf("drift: prepare: %w", err)
	}
	defer stmt.Close()
	ts := s.now().UTC().UnixNano()
	for _, k := range d.Keys {
		if _, err := stmt.ExecContext(ctx, d.Route, d.Method, d.Status, k, ts, ts); err != nil {
			return fmt.Errorf("drift: record %s %s %q: %w", d.Method, d.Route, k, err)
		}
	}
	return tx.Commit()
}

// List returns every entry ordered by route, method, status and key. A
// non-empty route restricts the result to that route template.
func (s *Store) List(ctx context.Context, route string) ([]Entry, error) {
	q := `SELECT route,method,status,key,count,first_seen,last_seen FROM additional_keys`
	var args []any
	if route != "" {
		q += ` WHERE route=?`
		args = append(args, route)
	}
	q += ` ORDER BY route,method,status,key`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("drift: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var first, last int64
		if err := rows.Scan(&e.Route, &e.Method, &e.Status, &e.Key, &e.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("drift: scan: %w", err)
		}
		e.FirstSeen = time.Unix(0, first).UTC()
		e.LastSeen = time.Unix(0, last).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes the recorded entries, all of them when route is empty, and
// returns how many rows went away.
func (s *Store) Clear(ctx context.Context, route string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if route == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM additional_keys`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM additional_keys WHERE route=?`, route)
	}
	if err != nil {
		return 0, fmt.Errorf("drift: clear: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }
