package store

import (
	"fmt"
	"time"
)

// FeedEntry is one published calendar-feed event, created when a
// suggestion with a proposed window is accepted.
type FeedEntry struct {
	SuggestionID string
	UserID       string
	UID          string
	Summary      string
	StartAt      int64
	EndAt        int64
	CreatedAt    int64
}

// PutFeedEntry publishes (or republishes) a feed entry.
func (db *DB) PutFeedEntry(e *FeedEntry) error {
	now := time.Now().UnixMilli()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	_, err := db.Exec(`
		INSERT INTO feed_entries (suggestion_id, user_id, uid, summary, start_at, end_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(suggestion_id) DO UPDATE SET
			summary = excluded.summary,
			start_at = excluded.start_at,
			end_at = excluded.end_at
	`, e.SuggestionID, e.UserID, e.UID, e.Summary, e.StartAt, e.EndAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("put feed entry: %w", err)
	}
	return nil
}

// DeleteFeedEntry retracts a published entry.
func (db *DB) DeleteFeedEntry(suggestionID string) error {
	_, err := db.Exec(`DELETE FROM feed_entries WHERE suggestion_id = ?`, suggestionID)
	if err != nil {
		return fmt.Errorf("delete feed entry: %w", err)
	}
	return nil
}

// ListFeedEntries returns a user's published entries in start order.
func (db *DB) ListFeedEntries(userID string) ([]FeedEntry, error) {
	rows, err := db.Query(`
		SELECT suggestion_id, user_id, uid, summary, start_at, end_at, created_at
		FROM feed_entries WHERE user_id = ? ORDER BY start_at, suggestion_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list feed entries: %w", err)
	}
	defer rows.Close()

	var out []FeedEntry
	for rows.Next() {
		var e FeedEntry
		if err := rows.Scan(&e.SuggestionID, &e.UserID, &e.UID, &e.Summary, &e.StartAt, &e.EndAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feed entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
