package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one fired command and its outcome.
type Event struct {
	ID        string    `json:"id"`
	Gesture   string    `json:"gesture"`
	Command   string    `json:"command"`
	Label     string    `json:"label"`
	Sink      string    `json:"sink"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository stores the command history.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e. ID and CreatedAt are filled in when empty.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, gesture, command, label, sink, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.Command, e.Label, e.Sink, e.Success, e.Error, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID retrieves a single event.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, gesture, command, label, sink, success, error, created_at
		 FROM events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns up to limit events, newest first. limit <= 0 returns all.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, gesture, command, label, sink, success, error, created_at
		 FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByCommand returns how many times each command was recorded.
func (r *EventRepository) CountByCommand() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT command, COUNT(*) FROM events GROUP BY command`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cmd string
		var n int
		if err := rows.Scan(&cmd, &n); err != nil {
			return nil, err
		}
		counts[cmd] = n
	}
	return counts, rows.Err()
}

// DeleteOlderThan removes events created before t and reports how many.
func (r *EventRepository) DeleteOlderThan(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at < ?`, t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}

// Clear removes every event.
func (r *EventRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	e := &Event{}
	var success int
	var created int64
	if err := s.Scan(&e.ID, &e.Gesture, &e.Command, &e.Label, &e.Sink, &success, &e.Error, &created); err != nil {
		return nil, err
	}
	e.Success = success != 0
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}
