package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/christopherklint97/dayslot/internal/slot"
)

const dateLayout = "2006-01-02"

// DayKey is the storage key of the local calendar date of t.
func DayKey(t time.Time) string {
	return t.Format(dateLayout)
}

// LoadDay returns the stored requests for date. found is false when the day
// has never been saved.
func (db *DB) LoadDay(date time.Time) (reqs []slot.Request, found bool, err error) {
	key := DayKey(date)

	var exists int
	err = db.QueryRow("SELECT COUNT(*) FROM days WHERE date = ?", key).Scan(&exists)
	if err != nil {
		return nil, false, fmt.Errorf("looking up day %s: %w", key, err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	rows, err := db.Query(
		`SELECT name, activity_id, length_seconds, fixed_length, fixed_start_seconds
		 FROM slot_requests
		 WHERE date = ?
		 ORDER BY position ASC`,
		key,
	)
	if err != nil {
		return nil, false, fmt.Errorf("querying slot requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r slot.Request
		var activityID sql.NullString
		var lengthSecs int64
		var fixedStart sql.NullInt64

		if err := rows.Scan(&r.Name, &activityID, &lengthSecs, &r.FixedLength, &fixedStart); err != nil {
			return nil, false, fmt.Errorf("scanning slot request: %w", err)
		}

		r.Length = time.Duration(lengthSecs) * time.Second
		if activityID.Valid {
			if id, err := uuid.Parse(activityID.String); err == nil {
				r.ActivityID = id
			}
		}
		if fixedStart.Valid {
			r = r.WithStart(time.Duration(fixedStart.Int64) * time.Second)
		}

		reqs = append(reqs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading slot requests: %w", err)
	}
	return reqs, true, nil
}

// SaveDay replaces the stored requests of date.
func (db *DB) SaveDay(date time.Time, reqs []slot.Request) error {
	key := DayKey(date)
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO days (date, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET updated_at = excluded.updated_at`,
		key, now, now,
	); err != nil {
		return fmt.Errorf("saving day %s: %w", key, err)
	}

	if _, err := tx.Exec("DELETE FROM slot_requests WHERE date = ?", key); err != nil {
		return fmt.Errorf("clearing slot requests: %w", err)
	}

	for i, r := range reqs {
		var activityID sql.NullString
		if r.ActivityID != uuid.Nil {
			activityID = sql.NullString{String: r.ActivityID.String(), Valid: true}
		}
		var fixedStart sql.NullInt64
		if start, ok := r.StartAt(); ok {
			fixedStart = sql.NullInt64{Int64: int64(start / time.Second), Valid: true}
		}

		if _, err := tx.Exec(
			`INSERT INTO slot_requests (date, position, name, activity_id, length_seconds, fixed_length, fixed_start_seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			key, i, r.Name, activityID, int64(r.Length/time.Second), r.FixedLength, fixedStart,
		); err != nil {
			return fmt.Errorf("inserting slot request %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListDays returns every saved date, oldest first.
func (db *DB) ListDays() ([]time.Time, error) {
	rows, err := db.Query("SELECT date FROM days ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("querying days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning day: %w", err)
		}
		d, err := time.ParseInLocation(dateLayout, key, time.Local)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
