package store

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)

	// Migrations ran; the version table reflects them all.
	var version int
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_versions`).Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestListUserIDs(t *testing.T) {
	db := testDB(t)

	ids, err := db.ListUserIDs()
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v on empty db", ids)
	}

	for _, pair := range [][2]string{{"c1", "bob"}, {"c2", "alice"}, {"c3", "alice"}} {
		if err := db.UpsertContact(&Contact{ID: pair[0], UserID: pair[1], Name: pair[0]}); err != nil {
			t.Fatalf("UpsertContact: %v", err)
		}
	}

	ids, err = db.ListUserIDs()
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("ids = %v, want [alice bob]", ids)
	}
}

func TestFreeWindows(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	windows := []AvailabilityWindow{
		{UserID: "u1", StartAt: base.UnixMilli(), EndAt: base.Add(2 * time.Hour).UnixMilli()},
		{UserID: "u1", StartAt: base.AddDate(0, 0, 5).UnixMilli(), EndAt: base.AddDate(0, 0, 5).Add(time.Hour).UnixMilli(), InPerson: true},
		{UserID: "u1", StartAt: base.AddDate(0, 0, 30).UnixMilli(), EndAt: base.AddDate(0, 0, 30).Add(time.Hour).UnixMilli()},
	}
	if err := db.ReplaceWindows("u1", windows); err != nil {
		t.Fatalf("ReplaceWindows: %v", err)
	}

	// Only windows overlapping the two-week range come back, in order.
	got, err := db.FreeWindows("u1", base.Add(-time.Hour), base.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("FreeWindows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("windows = %d, want 2", len(got))
	}
	if got[0].StartAt > got[1].StartAt {
		t.Error("windows not chronologically ordered")
	}
	if !got[1].InPerson {
		t.Error("in-person flag lost on roundtrip")
	}
	if got[0].Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC default", got[0].Timezone)
	}

	// Replacing swaps the whole set.
	if err := db.ReplaceWindows("u1", windows[:1]); err != nil {
		t.Fatalf("ReplaceWindows: %v", err)
	}
	got, _ = db.FreeWindows("u1", base.Add(-time.Hour), base.AddDate(0, 1, 0))
	if len(got) != 1 {
		t.Errorf("windows after replace = %d, want 1", len(got))
	}
}
