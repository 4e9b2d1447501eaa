package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Contact is the read-only relationship signal snapshot the engine scores.
// The authoritative contact record lives in the external directory; this
// table holds the fields the scorer and matchers read.
type Contact struct {
	ID          string
	UserID      string
	Name        string
	Frequency   string // daily, weekly, monthly, yearly, flexible
	Mode        string // in_person, remote
	LastContact *int64 // unix ms; nil means "never contacted"
	CreatedAt   int64

	Groups               []string
	Tags                 []string
	SharedEvents         int
	InteractionsPerMonth float64

	HasBirthday bool
	EmailCount  int
	PhoneCount  int
	HasAddress  bool
	HasCompany  bool
	HasJobTitle bool
	HasNotes    bool
	SocialCount int

	PreferredMinutes  int
	RepromptFrequency bool
	UpdatedAt         int64
}

// UpsertContact inserts or replaces a contact snapshot.
func (db *DB) UpsertContact(c *Contact) error {
	now := time.Now().UnixMilli()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.Frequency == "" {
		c.Frequency = "monthly"
	}
	if c.Mode == "" {
		c.Mode = "remote"
	}
	if c.PreferredMinutes == 0 {
		c.PreferredMinutes = 60
	}

	groups, err := json.Marshal(emptyIfNil(c.Groups))
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(c.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO contacts (id, user_id, name, frequency, mode, last_contact, created_at,
			groups, tags, shared_events, interactions_per_month,
			has_birthday, email_count, phone_count, has_address, has_company, has_job_title, has_notes, social_count,
			preferred_minutes, reprompt_frequency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			frequency = excluded.frequency,
			mode = excluded.mode,
			last_contact = excluded.last_contact,
			groups = excluded.groups,
			tags = excluded.tags,
			shared_events = excluded.shared_events,
			interactions_per_month = excluded.interactions_per_month,
			has_birthday = excluded.has_birthday,
			email_count = excluded.email_count,
			phone_count = excluded.phone_count,
			has_address = excluded.has_address,
			has_company = excluded.has_company,
			has_job_title = excluded.has_job_title,
			has_notes = excluded.has_notes,
			social_count = excluded.social_count,
			preferred_minutes = excluded.preferred_minutes,
			updated_at = excluded.updated_at
	`, c.ID, c.UserID, c.Name, c.Frequency, c.Mode, c.LastContact, c.CreatedAt,
		string(groups), string(tags), c.SharedEvents, c.InteractionsPerMonth,
		boolInt(c.HasBirthday), c.EmailCount, c.PhoneCount, boolInt(c.HasAddress),
		boolInt(c.HasCompany), boolInt(c.HasJobTitle), boolInt(c.HasNotes), c.SocialCount,
		c.PreferredMinutes, boolInt(c.RepromptFrequency), now)
	if err != nil {
		return fmt.Errorf("upsert contact %s: %w", c.ID, err)
	}
	c.UpdatedAt = now
	return nil
}

// ListContacts returns all contacts for a user, sorted by id for
// deterministic batch runs.
func (db *DB) ListContacts(userID string) ([]Contact, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, frequency, mode, last_contact, created_at,
			groups, tags, shared_events, interactions_per_month,
			has_birthday, email_count, phone_count, has_address, has_company, has_job_title, has_notes, social_count,
			preferred_minutes, reprompt_frequency, updated_at
		FROM contacts WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetContact returns a contact by id, or nil if not found.
func (db *DB) GetContact(id string) (*Contact, error) {
	row := db.QueryRow(`
		SELECT id, user_id, name, frequency, mode, last_contact, created_at,
			groups, tags, shared_events, interactions_per_month,
			has_birthday, email_count, phone_count, has_address, has_company, has_job_title, has_notes, social_count,
			preferred_minutes, reprompt_frequency, updated_at
		FROM contacts WHERE id = ?
	`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// TouchLastContact sets a contact's last-contact date. Used when a
// suggestion is accepted or dismissed as "met too recently".
func (db *DB) TouchLastContact(contactID string, at time.Time) error {
	res, err := db.Exec(`
		UPDATE contacts SET last_contact = ?, updated_at = ? WHERE id = ?
	`, at.UnixMilli(), time.Now().UnixMilli(), contactID)
	if err != nil {
		return fmt.Errorf("touch last contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("touch last contact: contact %s not found", contactID)
	}
	return nil
}

// FlagFrequencyReprompt marks a contact for a frequency-preference
// re-prompt in the UI.
func (db *DB) FlagFrequencyReprompt(contactID string) error {
	_, err := db.Exec(`
		UPDATE contacts SET reprompt_frequency = 1, updated_at = ? WHERE id = ?
	`, time.Now().UnixMilli(), contactID)
	if err != nil {
		return fmt.Errorf("flag reprompt: %w", err)
	}
	return nil
}

// CoMentionCounts returns pairwise co-mention counts for a user keyed by
// "a|b" with a < b.
func (db *DB) CoMentionCounts(userID string) (map[string]int, error) {
	return db.pairCounts("co_mentions", userID)
}

// JointInteractionCounts returns pairwise joint-interaction counts for a
// user keyed by "a|b" with a < b.
func (db *DB) JointInteractionCounts(userID string) (map[string]int, error) {
	return db.pairCounts("joint_interactions", userID)
}

func (db *DB) pairCounts(table, userID string) (map[string]int, error) {
	rows, err := db.Query(
		fmt.Sprintf(`SELECT contact_a, contact_b, count FROM %s WHERE user_id = ?`, table), userID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var a, b string
		var n int
		if err := rows.Scan(&a, &b, &n); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[a+"|"+b] = n
	}
	return out, rows.Err()
}

// AddCoMention increments the co-mention counter for a contact pair.
func (db *DB) AddCoMention(userID, a, b string, delta int) error {
	a, b = orderPair(a, b)
	_, err := db.Exec(`
		INSERT INTO co_mentions (user_id, contact_a, contact_b, count) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, contact_a, contact_b) DO UPDATE SET count = count + excluded.count
	`, userID, a, b, delta)
	if err != nil {
		return fmt.Errorf("add co-mention: %w", err)
	}
	return nil
}

// AddJointInteraction increments the joint-interaction counter for a pair
// and records when it happened.
func (db *DB) AddJointInteraction(userID, a, b string, at time.Time) error {
	a, b = orderPair(a, b)
	_, err := db.Exec(`
		INSERT INTO joint_interactions (user_id, contact_a, contact_b, count, last_at) VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(user_id, contact_a, contact_b) DO UPDATE SET count = count + 1, last_at = excluded.last_at
	`, userID, a, b, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("add joint interaction: %w", err)
	}
	return nil
}

func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var c Contact
	var lastContact sql.NullInt64
	var groups, tags string
	var birthday, address, company, jobTitle, notes, reprompt int
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Frequency, &c.Mode, &lastContact, &c.CreatedAt,
		&groups, &tags, &c.SharedEvents, &c.InteractionsPerMonth,
		&birthday, &c.EmailCount, &c.PhoneCount, &address, &company, &jobTitle, &notes, &c.SocialCount,
		&c.PreferredMinutes, &reprompt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	if lastContact.Valid {
		c.LastContact = &lastContact.Int64
	}
	if err := json.Unmarshal([]byte(groups), &c.Groups); err != nil {
		return nil, fmt.Errorf("decode groups for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", c.ID, err)
	}
	c.HasBirthday = birthday != 0
	c.HasAddress = address != 0
	c.HasCompany = company != 0
	c.HasJobTitle = jobTitle != 0
	c.HasNotes = notes != 0
	c.RepromptFrequency = reprompt != 0
	return &c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
