package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Interaction is one logged touchpoint with a contact.
type Interaction struct {
	ID               int64
	UserID           string
	ContactID        string
	OccurredAt       int64 // unix ms
	Type             string
	SourceSuggestion string
}

// LogInteraction appends an interaction entry.
func (db *DB) LogInteraction(in *Interaction) error {
	return db.logInteraction(db.DB, in)
}

func (db *DB) logInteraction(ex execer, in *Interaction) error {
	if in.OccurredAt == 0 {
		in.OccurredAt = time.Now().UnixMilli()
	}
	res, err := ex.Exec(`
		INSERT INTO interaction_log (user_id, contact_id, occurred_at, interaction_type, source_suggestion)
		VALUES (?, ?, ?, ?, NULLIF(?, ''))
	`, in.UserID, in.ContactID, in.OccurredAt, in.Type, in.SourceSuggestion)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	in.ID, _ = res.LastInsertId()
	return nil
}

// ListInteractions returns a contact's interactions, newest first.
func (db *DB) ListInteractions(userID, contactID string) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, user_id, contact_id, occurred_at, interaction_type, COALESCE(source_suggestion, '')
		FROM interaction_log
		WHERE user_id = ? AND contact_id = ?
		ORDER BY occurred_at DESC, id DESC
	`, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ContactID, &in.OccurredAt, &in.Type, &in.SourceSuggestion); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
