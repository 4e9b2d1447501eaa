package store

import (
	"errors"
	"testing"
	"time"
)

func pendingSuggestion(id, userID string, contactIDs ...string) *Suggestion {
	kind := KindIndividual
	if len(contactIDs) > 1 {
		kind = KindGroup
	}
	return &Suggestion{
		ID:          id,
		UserID:      userID,
		Kind:        kind,
		ContactIDs:  contactIDs,
		TriggerType: TriggerTimeBound,
	}
}

func TestContactKeyFor(t *testing.T) {
	if got := ContactKeyFor([]string{"carol", "alice", "bob"}); got != "alice|bob|carol" {
		t.Errorf("key = %q", got)
	}
	if ContactKeyFor([]string{"a", "b"}) != ContactKeyFor([]string{"b", "a"}) {
		t.Error("key must be order-insensitive")
	}
}

func TestSuggestionRoundtrip(t *testing.T) {
	db := testDB(t)
	start := time.Now().UnixMilli()
	end := start + int64(time.Hour/time.Millisecond)
	ctxScore := 65

	s := pendingSuggestion("s1", "u1", "bob", "alice")
	s.WindowStart = &start
	s.WindowEnd = &end
	s.WindowTZ = "Europe/Amsterdam"
	s.PriorityScore = 0.42
	s.SharedContextScore = &ctxScore
	s.Reasoning = "overdue by 2 months"

	if err := db.InsertSuggestions([]*Suggestion{s}); err != nil {
		t.Fatalf("InsertSuggestions: %v", err)
	}

	got, err := db.GetSuggestion("s1")
	if err != nil {
		t.Fatalf("GetSuggestion: %v", err)
	}
	if got == nil {
		t.Fatal("suggestion not found")
	}
	if got.Status != StatusPending || got.Version != 1 {
		t.Errorf("status/version = %s/%d, want pending/1", got.Status, got.Version)
	}
	if got.ContactKey != "alice|bob" {
		t.Errorf("contact key = %q", got.ContactKey)
	}
	if len(got.ContactIDs) != 2 || got.ContactIDs[0] != "bob" {
		t.Errorf("contact ids = %v, insertion order lost", got.ContactIDs)
	}
	if got.WindowStart == nil || *got.WindowStart != start || got.WindowTZ != "Europe/Amsterdam" {
		t.Errorf("window = %v/%v/%q", got.WindowStart, got.WindowEnd, got.WindowTZ)
	}
	if got.SharedContextScore == nil || *got.SharedContextScore != 65 {
		t.Errorf("shared context = %v", got.SharedContextScore)
	}
	if got.PriorityScore != 0.42 || got.Reasoning != "overdue by 2 months" {
		t.Errorf("score/reasoning = %v/%q", got.PriorityScore, got.Reasoning)
	}
	if got.DecidedAt != nil {
		t.Errorf("decided_at = %v on a fresh suggestion", got.DecidedAt)
	}

	missing, err := db.GetSuggestion("nope")
	if err != nil || missing != nil {
		t.Errorf("missing lookup = %v, %v", missing, err)
	}
}

func TestOpenSuggestionUniqueness(t *testing.T) {
	db := testDB(t)
	if err := db.InsertSuggestions([]*Suggestion{pendingSuggestion("s1", "u1", "alice", "bob")}); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Same contact set and trigger while the first is still open.
	err := db.InsertSuggestions([]*Suggestion{pendingSuggestion("s2", "u1", "bob", "alice")})
	if !errors.Is(err, ErrDuplicateOpen) {
		t.Fatalf("err = %v, want ErrDuplicateOpen", err)
	}

	// A different trigger for the same set is a distinct suggestion.
	s3 := pendingSuggestion("s3", "u1", "alice", "bob")
	s3.TriggerType = TriggerSharedActivity
	if err := db.InsertSuggestions([]*Suggestion{s3}); err != nil {
		t.Fatalf("different trigger: %v", err)
	}

	// Once the first is decided, the set is free again.
	s1, _ := db.GetSuggestion("s1")
	if err := db.Dismiss(s1, "not_interested", time.Now()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if err := db.InsertSuggestions([]*Suggestion{pendingSuggestion("s4", "u1", "alice", "bob")}); err != nil {
		t.Fatalf("insert after dismissal: %v", err)
	}
}

func TestListSuggestionsFilters(t *testing.T) {
	db := testDB(t)
	a := pendingSuggestion("s1", "u1", "alice")
	a.PriorityScore = 0.3
	b := pendingSuggestion("s2", "u1", "bob", "carol")
	b.PriorityScore = 0.8
	c := pendingSuggestion("s3", "u1", "dave")
	c.TriggerType = TriggerSharedActivity
	if err := db.InsertSuggestions([]*Suggestion{a, b, c}); err != nil {
		t.Fatalf("InsertSuggestions: %v", err)
	}
	if err := db.Dismiss(c, "not_interested", time.Now()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}

	pending, err := db.ListSuggestions("u1", ListFilter{})
	if err != nil {
		t.Fatalf("ListSuggestions: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != "s2" {
		t.Errorf("order = [%s %s], want highest priority first", pending[0].ID, pending[1].ID)
	}

	groups, _ := db.ListSuggestions("u1", ListFilter{Kind: KindGroup})
	if len(groups) != 1 || groups[0].ID != "s2" {
		t.Errorf("group filter = %v", groups)
	}

	dismissed, _ := db.ListSuggestions("u1", ListFilter{Status: StatusDismissed})
	if len(dismissed) != 1 || dismissed[0].ID != "s3" {
		t.Errorf("status filter = %v", dismissed)
	}

	byTrigger, _ := db.ListSuggestions("u1", ListFilter{Status: StatusDismissed, TriggerType: TriggerSharedActivity})
	if len(byTrigger) != 1 {
		t.Errorf("trigger filter = %v", byTrigger)
	}

	other, _ := db.ListSuggestions("u2", ListFilter{})
	if len(other) != 0 {
		t.Errorf("u2 suggestions = %v", other)
	}
}

func TestAcceptVersionRace(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertContact(&Contact{ID: "alice", UserID: "u1", Name: "Alice"}); err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if err := db.InsertSuggestions([]*Suggestion{pendingSuggestion("s1", "u1", "alice")}); err != nil {
		t.Fatalf("InsertSuggestions: %v", err)
	}

	first, _ := db.GetSuggestion("s1")
	second, _ := db.GetSuggestion("s1")

	if err := db.Accept(first, time.Now()); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	// The second reader holds a stale version and must lose.
	if err := db.Snooze(second, time.Now().Add(time.Hour), time.Now()); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale snooze err = %v, want ErrVersionConflict", err)
	}
	if err := db.Dismiss(second, "changed_plans", time.Now()); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale dismiss err = %v, want ErrVersionConflict", err)
	}
}

func TestExpireSnoozes(t *testing.T) {
	db := testDB(t)
	s1 := pendingSuggestion("s1", "u1", "alice")
	s2 := pendingSuggestion("s2", "u1", "bob")
	if err := db.InsertSuggestions([]*Suggestion{s1, s2}); err != nil {
		t.Fatalf("InsertSuggestions: %v", err)
	}

	if err := db.Snooze(s1, time.Now().Add(time.Hour), time.Now()); err != nil {
		t.Fatalf("Snooze s1: %v", err)
	}
	if err := db.Snooze(s2, time.Now().Add(time.Hour), time.Now()); err != nil {
		t.Fatalf("Snooze s2: %v", err)
	}

	// Nothing has elapsed yet.
	n, err := db.ExpireSnoozes("u1")
	if err != nil {
		t.Fatalf("ExpireSnoozes: %v", err)
	}
	if n != 0 {
		t.Errorf("expired = %d, want 0", n)
	}

	// Backdate one snooze; only that one flips.
	past := time.Now().Add(-time.Minute).UnixMilli()
	if _, err := db.Exec(`UPDATE suggestions SET snooze_until = ? WHERE id = 's1'`, past); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	n, err = db.ExpireSnoozes("u1")
	if err != nil {
		t.Fatalf("ExpireSnoozes: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}

	got, _ := db.GetSuggestion("s1")
	if got.Status != StatusPending || got.SnoozeUntil != nil {
		t.Errorf("s1 after expiry = %s/%v", got.Status, got.SnoozeUntil)
	}
	got, _ = db.GetSuggestion("s2")
	if got.Status != StatusSnoozed {
		t.Errorf("s2 status = %s, want still snoozed", got.Status)
	}
}

func TestOpenSuggestions(t *testing.T) {
	db := testDB(t)
	s1 := pendingSuggestion("s1", "u1", "alice")
	s2 := pendingSuggestion("s2", "u1", "bob")
	s3 := pendingSuggestion("s3", "u1", "carol")
	if err := db.InsertSuggestions([]*Suggestion{s1, s2, s3}); err != nil {
		t.Fatalf("InsertSuggestions: %v", err)
	}
	if err := db.Snooze(s2, time.Now().Add(time.Hour), time.Now()); err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if err := db.Dismiss(s3, "not_interested", time.Now()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}

	open, err := db.OpenSuggestions("u1")
	if err != nil {
		t.Fatalf("OpenSuggestions: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open = %d, want pending + snoozed", len(open))
	}
}

func TestFeedEntryRoundtrip(t *testing.T) {
	db := testDB(t)
	start := time.Now().UnixMilli()

	e := &FeedEntry{
		SuggestionID: "s1",
		UserID:       "u1",
		UID:          "abc@rekindle",
		Summary:      "Catch up: alice",
		StartAt:      start,
		EndAt:        start + 3600_000,
	}
	if err := db.PutFeedEntry(e); err != nil {
		t.Fatalf("PutFeedEntry: %v", err)
	}

	// Republishing updates in place.
	e.Summary = "Catch up: alice (moved)"
	if err := db.PutFeedEntry(e); err != nil {
		t.Fatalf("republish: %v", err)
	}

	entries, err := db.ListFeedEntries("u1")
	if err != nil {
		t.Fatalf("ListFeedEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Summary != "Catch up: alice (moved)" {
		t.Errorf("entries = %+v", entries)
	}

	if err := db.DeleteFeedEntry("s1"); err != nil {
		t.Fatalf("DeleteFeedEntry: %v", err)
	}
	entries, _ = db.ListFeedEntries("u1")
	if len(entries) != 0 {
		t.Errorf("entries after delete = %+v", entries)
	}
}
