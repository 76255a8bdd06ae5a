package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrActivityNotFound = errors.New("activity not found")

// Activity is an identity shared by slot requests across days.
type Activity struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

func (db *DB) CreateActivity(name string) (*Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("activity name is empty")
	}

	a := &Activity{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if _, err := db.Exec(
		"INSERT INTO activities (id, name, created_at) VALUES (?, ?, ?)",
		a.ID.String(), a.Name, a.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("inserting activity: %w", err)
	}
	return a, nil
}

// EnsureActivity returns the activity called name, creating it when missing.
func (db *DB) EnsureActivity(name string) (*Activity, error) {
	a, err := db.activityWhere("name = ?", strings.TrimSpace(name))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrActivityNotFound) {
		return nil, err
	}
	return db.CreateActivity(name)
}

func (db *DB) GetActivity(id uuid.UUID) (*Activity, error) {
	return db.activityWhere("id = ?", id.String())
}

func (db *DB) ListActivities() ([]Activity, error) {
	rows, err := db.Query("SELECT id, name, created_at FROM activities ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

func (db *DB) activityWhere(cond string, arg any) (*Activity, error) {
	row := db.QueryRow("SELECT id, name, created_at FROM activities WHERE "+cond, arg)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*Activity, error) {
	var a Activity
	var id, createdStr string
	if err := s.Scan(&id, &a.Name, &createdStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning activity: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing activity id %q: %w", id, err)
	}
	a.ID = parsed
	if t, err := time.Parse(time.RFC3339, createdStr); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}
