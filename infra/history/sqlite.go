// Package history keeps a queryable log of call lifecycle events, unit
// transitions and shift changes in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS call_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	call_id INTEGER NOT NULL,
	agency TEXT NOT NULL,
	zone TEXT,
	scenario TEXT,
	category TEXT,
	priority TEXT,
	event TEXT NOT NULL,
	reason TEXT,
	units INTEGER,
	age_ms INTEGER,
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS call_events_call ON call_events (call_id);
CREATE TABLE IF NOT EXISTS unit_status (
	unit_id TEXT NOT NULL,
	agency TEXT NOT NULL,
	kind TEXT,
	ai INTEGER,
	old TEXT,
	new TEXT,
	at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS shifts (
	agency TEXT NOT NULL,
	old TEXT,
	new TEXT,
	activated INTEGER,
	relieved INTEGER,
	shortfall INTEGER,
	at INTEGER NOT NULL
);`

// Store persists records in a SQLite database. It implements the metrics
// sink interfaces.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema. Use
// ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps an in-memory database shared by every statement.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordCall appends a call event.
func (s *Store) RecordCall(r coremetrics.CallRecord) error {
	_, err := s.db.Exec(`INSERT INTO call_events
		(call_id, agency, zone, scenario, category, priority, event, reason, units, age_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CallID, r.AgencyID, r.ZoneID, r.Scenario, r.Category, r.Priority,
		r.Event, r.Reason, r.Units, r.Age.Milliseconds(), stamp(r.Time))
	return err
}

// RecordUnitStatus appends a unit transition.
func (s *Store) RecordUnitStatus(r coremetrics.UnitStatusRecord) error {
	_, err := s.db.Exec(`INSERT INTO unit_status (unit_id, agency, kind, ai, old, new, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.UnitID, r.AgencyID, r.Kind, r.AI, r.Old, r.New, stamp(r.Time))
	return err
}

// RecordShift appends a shift change.
func (s *Store) RecordShift(r coremetrics.ShiftRecord) error {
	_, err := s.db.Exec(`INSERT INTO shifts (agency, old, new, activated, relieved, shortfall, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.AgencyID, r.Old, r.New, r.Activated, r.Relieved, r.Shortfall, stamp(r.Time))
	return err
}

// Timeline returns the events of one call in insertion order.
func (s *Store) Timeline(callID int64) ([]coremetrics.CallRecord, error) {
	rows, err := s.db.Query(`SELECT call_id, agency, zone, scenario, category, priority,
		event, reason, units, age_ms, at FROM call_events WHERE call_id = ? ORDER BY id`, callID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.CallRecord
	for rows.Next() {
		var (
			r      coremetrics.CallRecord
			ageMS  int64
			at     int64
			reason sql.NullString
		)
		if err := rows.Scan(&r.CallID, &r.AgencyID, &r.ZoneID, &r.Scenario, &r.Category,
			&r.Priority, &r.Event, &reason, &r.Units, &ageMS, &at); err != nil {
			return nil, err
		}
		r.Reason = reason.String
		r.Age = time.Duration(ageMS) * time.Millisecond
		r.Time = time.UnixMilli(at).UTC()
		res = append(res, r)
	}
	return res, rows.Err()
}

// EventCounts returns the number of call events per event type for agency.
// An empty agency counts every agency.
func (s *Store) EventCounts(agency string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT event, COUNT(*) FROM call_events
		WHERE ? = '' OR agency = ? GROUP BY event`, agency, agency)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := make(map[string]int)
	for rows.Next() {
		var (
			ev string
			n  int
		)
		if err := rows.Scan(&ev, &n); err != nil {
			return nil, err
		}
		res[ev] = n
	}
	return res, rows.Err()
}

// Shortfall returns the total staging shortfall recorded for agency.
func (s *Store) Shortfall(agency string) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(shortfall) FROM shifts WHERE agency = ?`, agency).Scan(&n)
	return int(n.Int64), err
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
