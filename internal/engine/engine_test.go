package engine

import (
	"context"
	"testing"
	"time"

	"github.com/okent/rekindle/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	db := testDB(t)
	return New(db), db
}

// seedContact inserts an overdue-tunable contact. lastDaysAgo controls
// how long ago the last touchpoint was; monthly cadence means anything
// past 30 days is due.
func seedContact(t *testing.T, db *store.DB, userID, id string, lastDaysAgo int, groups, tags []string) {
	t.Helper()
	last := time.Now().AddDate(0, 0, -lastDaysAgo).UnixMilli()
	c := &store.Contact{
		ID:          id,
		UserID:      userID,
		Name:        "Contact " + id,
		Frequency:   "monthly",
		LastContact: &last,
		CreatedAt:   time.Now().AddDate(-1, 0, 0).UnixMilli(),
		Groups:      groups,
		Tags:        tags,
	}
	if err := db.UpsertContact(c); err != nil {
		t.Fatalf("UpsertContact %s: %v", id, err)
	}
}

// seedWindows creates n free two-hour remote windows on consecutive days
// starting tomorrow.
func seedWindows(t *testing.T, db *store.DB, userID string, n int) {
	t.Helper()
	windows := make([]store.AvailabilityWindow, n)
	for i := range windows {
		start := time.Now().AddDate(0, 0, i+1)
		windows[i] = store.AvailabilityWindow{
			UserID:   userID,
			StartAt:  start.UnixMilli(),
			EndAt:    start.Add(2 * time.Hour).UnixMilli(),
			Timezone: "UTC",
		}
	}
	if err := db.ReplaceWindows(userID, windows); err != nil {
		t.Fatalf("ReplaceWindows: %v", err)
	}
}

func TestRunAllBatchesCoversEveryUser(t *testing.T) {
	e, db := testEngine(t)
	for _, user := range []string{"alice", "bob"} {
		seedContact(t, db, user, user+"-c1", 60, nil, nil)
		seedWindows(t, db, user, 2)
	}

	e.RunAllBatches(context.Background())

	for _, user := range []string{"alice", "bob"} {
		sugs, err := db.ListSuggestions(user, store.ListFilter{})
		if err != nil {
			t.Fatalf("ListSuggestions %s: %v", user, err)
		}
		if len(sugs) != 1 {
			t.Errorf("user %s got %d suggestions, want 1", user, len(sugs))
		}
	}
}

func TestToSignalsCloseFriend(t *testing.T) {
	e, db := testEngine(t)
	seedContact(t, db, "u1", "c1", 60, []string{"close friends"}, nil)
	seedContact(t, db, "u1", "c2", 60, []string{"book club"}, nil)

	contacts, err := e.Directory.ListContacts(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	byID := map[string]ContactSignals{}
	for _, c := range contacts {
		byID[c.ID] = c
	}
	if !byID["c1"].CloseFriend {
		t.Error("member of the close-friends group not flagged")
	}
	if byID["c2"].CloseFriend {
		t.Error("non-member flagged as close friend")
	}
}
