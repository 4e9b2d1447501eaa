package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "contacts: relationship signal snapshot per user",
		SQL: `
CREATE TABLE contacts (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    name             TEXT NOT NULL,
    frequency        TEXT NOT NULL DEFAULT 'monthly' CHECK (frequency IN ('daily', 'weekly', 'monthly', 'yearly', 'flexible')),
    mode             TEXT NOT NULL DEFAULT 'remote' CHECK (mode IN ('in_person', 'remote')),
    last_contact     INTEGER,
    created_at       INTEGER NOT NULL,

    -- Shared context inputs
    groups           TEXT NOT NULL DEFAULT '[]',
    tags             TEXT NOT NULL DEFAULT '[]',
    shared_events    INTEGER NOT NULL DEFAULT 0,
    interactions_per_month REAL NOT NULL DEFAULT 0,

    -- Metadata richness inputs
    has_birthday     INTEGER NOT NULL DEFAULT 0,
    email_count      INTEGER NOT NULL DEFAULT 0,
    phone_count      INTEGER NOT NULL DEFAULT 0,
    has_address      INTEGER NOT NULL DEFAULT 0,
    has_company      INTEGER NOT NULL DEFAULT 0,
    has_job_title    INTEGER NOT NULL DEFAULT 0,
    has_notes        INTEGER NOT NULL DEFAULT 0,
    social_count     INTEGER NOT NULL DEFAULT 0,

    preferred_minutes INTEGER NOT NULL DEFAULT 60,
    reprompt_frequency INTEGER NOT NULL DEFAULT 0,
    updated_at       INTEGER NOT NULL
);

CREATE INDEX idx_contacts_user ON contacts(user_id);
`,
	},
	{
		Version:     2,
		Description: "availability_windows: imported free/busy windows per user",
		SQL: `
CREATE TABLE availability_windows (
    id         INTEGER PRIMARY KEY,
    user_id    TEXT NOT NULL,
    start_at   INTEGER NOT NULL,
    end_at     INTEGER NOT NULL,
    timezone   TEXT NOT NULL DEFAULT 'UTC',
    in_person  INTEGER NOT NULL DEFAULT 0,
    CHECK (end_at > start_at)
);

CREATE INDEX idx_windows_user_start ON availability_windows(user_id, start_at);
`,
	},
	{
		Version:     3,
		Description: "suggestions: lifecycle records with optimistic versioning",
		SQL: `
CREATE TABLE suggestions (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    kind             TEXT NOT NULL CHECK (kind IN ('individual', 'group')),
    contact_ids      TEXT NOT NULL,
    contact_key      TEXT NOT NULL,
    trigger_type     TEXT NOT NULL CHECK (trigger_type IN ('time_bound', 'shared_activity')),
    window_start     INTEGER,
    window_end       INTEGER,
    window_tz        TEXT,
    priority_score   REAL NOT NULL DEFAULT 0,
    shared_context_score INTEGER,
    reasoning        TEXT,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'dismissed', 'snoozed')),
    dismiss_reason   TEXT,
    snooze_until     INTEGER,
    version          INTEGER NOT NULL DEFAULT 1,
    created_at       INTEGER NOT NULL,
    decided_at       INTEGER,
    updated_at       INTEGER NOT NULL
);

CREATE INDEX idx_sugg_user_status ON suggestions(user_id, status);
CREATE UNIQUE INDEX idx_sugg_open_key ON suggestions(user_id, contact_key, trigger_type)
    WHERE status IN ('pending', 'snoozed');
`,
	},
	{
		Version:     4,
		Description: "interaction_log: interactions written on suggestion acceptance",
		SQL: `
CREATE TABLE interaction_log (
    id                INTEGER PRIMARY KEY,
    user_id           TEXT NOT NULL,
    contact_id        TEXT NOT NULL,
    occurred_at       INTEGER NOT NULL,
    interaction_type  TEXT NOT NULL,
    source_suggestion TEXT
);

CREATE INDEX idx_interactions_contact ON interaction_log(user_id, contact_id, occurred_at DESC);
`,
	},
	{
		Version:     5,
		Description: "co_mentions + joint_interactions: pairwise shared-context counters",
		SQL: `
CREATE TABLE co_mentions (
    user_id    TEXT NOT NULL,
    contact_a  TEXT NOT NULL,
    contact_b  TEXT NOT NULL,
    count      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, contact_a, contact_b),
    CHECK (contact_a < contact_b)
);

CREATE TABLE joint_interactions (
    user_id    TEXT NOT NULL,
    contact_a  TEXT NOT NULL,
    contact_b  TEXT NOT NULL,
    count      INTEGER NOT NULL DEFAULT 0,
    last_at    INTEGER,
    PRIMARY KEY (user_id, contact_a, contact_b),
    CHECK (contact_a < contact_b)
);
`,
	},
	{
		Version:     6,
		Description: "feed_entries: published calendar-feed events for accepted suggestions",
		SQL: `
CREATE TABLE feed_entries (
    suggestion_id TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    uid           TEXT NOT NULL,
    summary       TEXT NOT NULL,
    start_at      INTEGER NOT NULL,
    end_at        INTEGER NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE INDEX idx_feed_user ON feed_entries(user_id, start_at);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
