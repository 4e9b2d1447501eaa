package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Suggestion statuses. pending is the only non-terminal state besides
// snoozed; snoozed flips back to pending lazily once snooze_until elapses.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDismissed = "dismissed"
	StatusSnoozed   = "snoozed"
)

// Suggestion kinds.
const (
	KindIndividual = "individual"
	KindGroup      = "group"
)

// Trigger types.
const (
	TriggerTimeBound      = "time_bound"
	TriggerSharedActivity = "shared_activity"
)

// DismissReasonMetRecently is the dismissal reason that also resets the
// contact's last-contact date and flags a frequency re-prompt.
const DismissReasonMetRecently = "met_too_recently"

// ErrVersionConflict is returned when a state transition loses an
// optimistic-concurrency race. Callers must re-read and retry.
var ErrVersionConflict = errors.New("suggestion version conflict")

// ErrDuplicateOpen is returned when an insert collides with an open
// suggestion for the same (contact set, trigger) pair.
var ErrDuplicateOpen = errors.New("open suggestion already exists for contact set")

// Suggestion is one reconnect or gathering recommendation.
type Suggestion struct {
	ID                 string   `json:"id"`
	UserID             string   `json:"user_id"`
	Kind               string   `json:"kind"`
	ContactIDs         []string `json:"contact_ids"`
	ContactKey         string   `json:"-"`
	TriggerType        string   `json:"trigger_type"`
	WindowStart        *int64   `json:"window_start,omitempty"`
	WindowEnd          *int64   `json:"window_end,omitempty"`
	WindowTZ           string   `json:"window_tz,omitempty"`
	PriorityScore      float64  `json:"priority_score"`
	SharedContextScore *int     `json:"shared_context_score,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
	Status             string   `json:"status"`
	DismissReason      string   `json:"dismiss_reason,omitempty"`
	SnoozeUntil        *int64   `json:"snooze_until,omitempty"`
	Version            int      `json:"version"`
	CreatedAt          int64    `json:"created_at"`
	DecidedAt          *int64   `json:"decided_at,omitempty"`
	UpdatedAt          int64    `json:"updated_at"`
}

// ContactKeyFor builds the canonical dedup key for a contact set: the ids
// sorted and joined. Pending-set uniqueness is keyed on this.
func ContactKeyFor(contactIDs []string) string {
	ids := append([]string(nil), contactIDs...)
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

const suggestionColumns = `id, user_id, kind, contact_ids, contact_key, trigger_type,
	window_start, window_end, window_tz, priority_score, shared_context_score, reasoning,
	status, COALESCE(dismiss_reason, ''), snooze_until, version, created_at, decided_at, updated_at`

// InsertSuggestions persists a generated batch in a single transaction.
// A collision with the open-suggestion unique index aborts the insert
// with ErrDuplicateOpen; generation is expected to have deduplicated.
func (db *DB) InsertSuggestions(sugs []*Suggestion) error {
	if len(sugs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert suggestions: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, s := range sugs {
		if len(s.ContactIDs) == 0 {
			return fmt.Errorf("suggestion %s has no contacts", s.ID)
		}
		s.ContactKey = ContactKeyFor(s.ContactIDs)
		if s.Status == "" {
			s.Status = StatusPending
		}
		if s.Version == 0 {
			s.Version = 1
		}
		if s.CreatedAt == 0 {
			s.CreatedAt = now
		}
		s.UpdatedAt = now

		ids, err := json.Marshal(s.ContactIDs)
		if err != nil {
			return fmt.Errorf("marshal contact ids: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO suggestions (id, user_id, kind, contact_ids, contact_key, trigger_type,
				window_start, window_end, window_tz, priority_score, shared_context_score, reasoning,
				status, snooze_until, version, created_at, decided_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?, ?, ?, NULL, ?)
		`, s.ID, s.UserID, s.Kind, string(ids), s.ContactKey, s.TriggerType,
			s.WindowStart, s.WindowEnd, s.WindowTZ, s.PriorityScore, s.SharedContextScore, s.Reasoning,
			s.Status, s.SnoozeUntil, s.Version, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("%w: %s/%s", ErrDuplicateOpen, s.ContactKey, s.TriggerType)
			}
			return fmt.Errorf("insert suggestion %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// GetSuggestion returns a suggestion by id, or nil if not found.
// An elapsed snooze is expired (snoozed → pending) before the read.
func (db *DB) GetSuggestion(id string) (*Suggestion, error) {
	now := time.Now().UnixMilli()
	if _, err := db.Exec(`
		UPDATE suggestions SET status = ?, snooze_until = NULL, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND snooze_until IS NOT NULL AND snooze_until <= ?
	`, StatusPending, now, id, StatusSnoozed, now); err != nil {
		return nil, fmt.Errorf("expire snooze: %w", err)
	}

	row := db.QueryRow(`SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?`, id)
	s, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ExpireSnoozes flips every elapsed snooze for a user back to pending.
// Called lazily on reads; there is deliberately no background timer.
func (db *DB) ExpireSnoozes(userID string) (int, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE suggestions SET status = ?, snooze_until = NULL, version = version + 1, updated_at = ?
		WHERE user_id = ? AND status = ? AND snooze_until IS NOT NULL AND snooze_until <= ?
	`, StatusPending, now, userID, StatusSnoozed, now)
	if err != nil {
		return 0, fmt.Errorf("expire snoozes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListFilter narrows ListSuggestions results.
type ListFilter struct {
	Status      string // empty means pending
	TriggerType string
	Kind        string
}

// ListSuggestions returns a user's suggestions matching the filter, newest
// first. Elapsed snoozes are expired before a pending query so they
// reappear without a timer.
func (db *DB) ListSuggestions(userID string, f ListFilter) ([]Suggestion, error) {
	status := f.Status
	if status == "" {
		status = StatusPending
	}
	if status == StatusPending {
		if _, err := db.ExpireSnoozes(userID); err != nil {
			return nil, err
		}
	}

	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE user_id = ? AND status = ?`
	args := []any{userID, status}
	if f.TriggerType != "" {
		query += ` AND trigger_type = ?`
		args = append(args, f.TriggerType)
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	query += ` ORDER BY priority_score DESC, created_at DESC, id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// OpenSuggestions returns pending and snoozed suggestions for a user,
// used to deduplicate batch regeneration. Elapsed snoozes expire first.
func (db *DB) OpenSuggestions(userID string) ([]Suggestion, error) {
	if _, err := db.ExpireSnoozes(userID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE user_id = ? AND status IN (?, ?)
		ORDER BY created_at, id
	`, userID, StatusPending, StatusSnoozed)
	if err != nil {
		return nil, fmt.Errorf("open suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Accept transitions pending → accepted, logging one interaction per
// contact, touching each contact's last-contact date, and incrementing
// joint-interaction counters for group pairs. All in one transaction.
// The version check makes concurrent decisions resolve deterministically:
// the loser gets ErrVersionConflict.
func (db *DB) Accept(s *Suggestion, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback()

	if err := db.acceptInTx(tx, s, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) acceptInTx(tx *sql.Tx, s *Suggestion, now time.Time) error {
	ms := now.UnixMilli()
	res, err := tx.Exec(`
		UPDATE suggestions SET status = ?, decided_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`, StatusAccepted, ms, ms, s.ID, s.Version, StatusPending)
	if err != nil {
		return fmt.Errorf("accept %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("accept %s: %w", s.ID, ErrVersionConflict)
	}

	for _, contactID := range s.ContactIDs {
		if _, err := tx.Exec(`
			INSERT INTO interaction_log (user_id, contact_id, occurred_at, interaction_type, source_suggestion)
			VALUES (?, ?, ?, ?, ?)
		`, s.UserID, contactID, ms, "suggestion_accepted", s.ID); err != nil {
			return fmt.Errorf("log interaction for %s: %w", contactID, err)
		}
		if _, err := tx.Exec(`
			UPDATE contacts SET last_contact = ?, updated_at = ? WHERE id = ?
		`, ms, ms, contactID); err != nil {
			return fmt.Errorf("touch contact %s: %w", contactID, err)
		}
	}

	// Group acceptance keeps the pairwise joint-interaction counters warm
	// for future shared-context scoring.
	for i := 0; i < len(s.ContactIDs); i++ {
		for j := i + 1; j < len(s.ContactIDs); j++ {
			a, b := orderPair(s.ContactIDs[i], s.ContactIDs[j])
			if _, err := tx.Exec(`
				INSERT INTO joint_interactions (user_id, contact_a, contact_b, count, last_at) VALUES (?, ?, ?, 1, ?)
				ON CONFLICT(user_id, contact_a, contact_b) DO UPDATE SET count = count + 1, last_at = excluded.last_at
			`, s.UserID, a, b, ms); err != nil {
				return fmt.Errorf("joint interaction %s/%s: %w", a, b, err)
			}
		}
	}

	s.Status = StatusAccepted
	s.Version++
	s.DecidedAt = &ms
	s.UpdatedAt = ms
	return nil
}

// AcceptAll accepts every suggestion in the set or none of them. All must
// belong to userID and be pending at their given versions; the first
// failure rolls back the whole transaction and is reported per id.
func (db *DB) AcceptAll(userID string, sugs []*Suggestion, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch accept: %w", err)
	}
	defer tx.Rollback()

	for _, s := range sugs {
		if s.UserID != userID {
			return fmt.Errorf("suggestion %s: wrong user", s.ID)
		}
		if err := db.acceptInTx(tx, s, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Dismiss transitions pending → dismissed with a reason. The
// "met_too_recently" reason also resets each contact's last-contact date
// to now and flags the contact for a frequency-preference re-prompt,
// which feeds future decay calculations.
func (db *DB) Dismiss(s *Suggestion, reason string, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin dismiss: %w", err)
	}
	defer tx.Rollback()

	ms := now.UnixMilli()
	res, err := tx.Exec(`
		UPDATE suggestions SET status = ?, dismiss_reason = ?, decided_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`, StatusDismissed, reason, ms, ms, s.ID, s.Version, StatusPending)
	if err != nil {
		return fmt.Errorf("dismiss %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dismiss %s: %w", s.ID, ErrVersionConflict)
	}

	if reason == DismissReasonMetRecently {
		for _, contactID := range s.ContactIDs {
			if _, err := tx.Exec(`
				UPDATE contacts SET last_contact = ?, reprompt_frequency = 1, updated_at = ? WHERE id = ?
			`, ms, ms, contactID); err != nil {
				return fmt.Errorf("touch contact %s: %w", contactID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.Status = StatusDismissed
	s.DismissReason = reason
	s.Version++
	s.DecidedAt = &ms
	s.UpdatedAt = ms
	return nil
}

// Snooze transitions pending → snoozed until the given time.
func (db *DB) Snooze(s *Suggestion, until time.Time, now time.Time) error {
	ms := now.UnixMilli()
	untilMs := until.UnixMilli()
	res, err := db.Exec(`
		UPDATE suggestions SET status = ?, snooze_until = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`, StatusSnoozed, untilMs, ms, s.ID, s.Version, StatusPending)
	if err != nil {
		return fmt.Errorf("snooze %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snooze %s: %w", s.ID, ErrVersionConflict)
	}
	s.Status = StatusSnoozed
	s.SnoozeUntil = &untilMs
	s.Version++
	s.UpdatedAt = ms
	return nil
}

func scanSuggestion(row rowScanner) (*Suggestion, error) {
	var s Suggestion
	var contactIDs string
	var windowStart, windowEnd, snoozeUntil, decidedAt sql.NullInt64
	var windowTZ, reasoning sql.NullString
	var sharedContext sql.NullInt64
	err := row.Scan(&s.ID, &s.UserID, &s.Kind, &contactIDs, &s.ContactKey, &s.TriggerType,
		&windowStart, &windowEnd, &windowTZ, &s.PriorityScore, &sharedContext, &reasoning,
		&s.Status, &s.DismissReason, &snoozeUntil, &s.Version, &s.CreatedAt, &decidedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	if err := json.Unmarshal([]byte(contactIDs), &s.ContactIDs); err != nil {
		return nil, fmt.Errorf("decode contact ids for %s: %w", s.ID, err)
	}
	if windowStart.Valid {
		s.WindowStart = &windowStart.Int64
	}
	if windowEnd.Valid {
		s.WindowEnd = &windowEnd.Int64
	}
	s.WindowTZ = windowTZ.String
	s.Reasoning = reasoning.String
	if sharedContext.Valid {
		v := int(sharedContext.Int64)
		s.SharedContextScore = &v
	}
	if snoozeUntil.Valid {
		s.SnoozeUntil = &snoozeUntil.Int64
	}
	if decidedAt.Valid {
		s.DecidedAt = &decidedAt.Int64
	}
	return &s, nil
}
