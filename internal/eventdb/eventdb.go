// Package eventdb persists classification transitions and a mirror of the
// parameter audit trail to SQLite, giving operators a queryable record of
// what the robot saw and how it was tuned at the time.
package eventdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/carrybot-robotics/stairguard/internal/depth"
	"github.com/carrybot-robotics/stairguard/internal/params"
)

type DB struct {
	*sql.DB
	runID string
}

// NewDB opens (creating if needed) the event database at path and tags all
// rows written through this handle with a fresh run identifier.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS label_transitions (
			run_id            TEXT,
			from_label        TEXT,
			to_label          TEXT,
			mean_distance     DOUBLE,
			height_diff       DOUBLE,
			void_area         BIGINT,
			cycle             BIGINT,
			at_unix_nanos     BIGINT
		);
		CREATE TABLE IF NOT EXISTS param_changes (
			run_id            TEXT,
			source            TEXT,
			name              TEXT,
			old_value         DOUBLE,
			new_value         DOUBLE,
			at_unix_nanos     BIGINT
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create event schema: %w", err)
	}

	return &DB{DB: db, runID: uuid.New().String()}, nil
}

// RunID returns the identifier tagged onto this process's rows.
func (db *DB) RunID() string { return db.runID }

// RecordTransition stores one stable-label change with the evidence that
// produced it.
func (db *DB) RecordTransition(from, to depth.Label, res depth.Result, cycle uint64, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO label_transitions
			(run_id, from_label, to_label, mean_distance, height_diff, void_area, cycle, at_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		db.runID, string(from), string(to),
		res.MeanDistance, res.HeightDiff, res.VoidArea,
		int64(cycle), at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecordParamChanges mirrors audit records into the database. Registered as
// a store observer alongside the file audit log.
func (db *DB) RecordParamChanges(changes []params.Change) error {
	for _, ch := range changes {
		_, err := db.Exec(`
			INSERT INTO param_changes
				(run_id, source, name, old_value, new_value, at_unix_nanos)
			VALUES (?, ?, ?, ?, ?, ?)`,
			db.runID, string(ch.Source), ch.Name, ch.Old, ch.New, ch.Timestamp.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("record param change: %w", err)
		}
	}
	return nil
}

// Transition is one stored label change.
type Transition struct {
	RunID        string      `json:"run_id"`
	FromLabel    depth.Label `json:"from_label"`
	ToLabel      depth.Label `json:"to_label"`
	MeanDistance float64     `json:"mean_distance"`
	HeightDiff   float64     `json:"height_diff"`
	VoidArea     int64       `json:"void_area"`
	Cycle        int64       `json:"cycle"`
	At           time.Time   `json:"at"`
}

// RecentTransitions returns up to limit transitions, newest first.
func (db *DB) RecentTransitions(limit int) ([]Transition, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT run_id, from_label, to_label, mean_distance, height_diff, void_area, cycle, at_unix_nanos
		FROM label_transitions
		ORDER BY at_unix_nanos DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var from, to string
		var atNanos int64
		if err := rows.Scan(&t.RunID, &from, &to, &t.MeanDistance, &t.HeightDiff, &t.VoidArea, &t.Cycle, &atNanos); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.FromLabel = depth.Label(from)
		t.ToLabel = depth.Label(to)
		t.At = time.Unix(0, atNanos)
		out = append(out, t)
	}
	return out, rows.Err()
}
