package store

import (
	"fmt"
	"time"
)

// AvailabilityWindow is an open calendar window for a user, already
// filtered upstream by that user's manual availability rules.
type AvailabilityWindow struct {
	ID       int64
	UserID   string
	StartAt  int64 // unix ms
	EndAt    int64
	Timezone string
	InPerson bool
}

// ReplaceWindows swaps a user's availability windows for a fresh import.
// Windows are stored non-overlapping and chronologically ordered; the
// engine relies on that ordering.
func (db *DB) ReplaceWindows(userID string, windows []AvailabilityWindow) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace windows: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM availability_windows WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear windows: %w", err)
	}
	for _, w := range windows {
		tz := w.Timezone
		if tz == "" {
			tz = "UTC"
		}
		if _, err := tx.Exec(`
			INSERT INTO availability_windows (user_id, start_at, end_at, timezone, in_person)
			VALUES (?, ?, ?, ?, ?)
		`, userID, w.StartAt, w.EndAt, tz, boolInt(w.InPerson)); err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
	}
	return tx.Commit()
}

// FreeWindows returns the user's windows overlapping [from, to),
// chronologically ordered.
func (db *DB) FreeWindows(userID string, from, to time.Time) ([]AvailabilityWindow, error) {
	rows, err := db.Query(`
		SELECT id, user_id, start_at, end_at, timezone, in_person
		FROM availability_windows
		WHERE user_id = ? AND end_at > ? AND start_at < ?
		ORDER BY start_at
	`, userID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("free windows: %w", err)
	}
	defer rows.Close()

	var out []AvailabilityWindow
	for rows.Next() {
		var w AvailabilityWindow
		var inPerson int
		if err := rows.Scan(&w.ID, &w.UserID, &w.StartAt, &w.EndAt, &w.Timezone, &inPerson); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		w.InPerson = inPerson != 0
		out = append(out, w)
	}
	return out, rows.Err()
}
