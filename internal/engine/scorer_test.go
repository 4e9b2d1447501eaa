package engine

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestDecayFactorZeroRegion(t *testing.T) {
	// No decay contribution up to half the threshold.
	for _, ratio := range []float64{0, 0.1, 0.25, 0.5} {
		if got := DecayFactor(ratio); got != 0 {
			t.Errorf("DecayFactor(%v) = %v, want 0", ratio, got)
		}
	}
}

func TestDecayFactorAnchors(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{1.0, 0.5},  // exactly at threshold
		{2.0, 1.0},  // double the threshold
		{3.0, 1.0},  // capped
		{1.5, 0.75},
	}
	for _, c := range cases {
		if got := DecayFactor(c.ratio); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("DecayFactor(%v) = %v, want %v", c.ratio, got, c.want)
		}
	}
}

func TestDecayFactorMonotone(t *testing.T) {
	prev := -1.0
	for ratio := 0.0; ratio <= 4.0; ratio += 0.05 {
		got := DecayFactor(ratio)
		if got < prev {
			t.Fatalf("DecayFactor not monotone at ratio %v: %v < %v", ratio, got, prev)
		}
		prev = got
	}
}

func TestMetadataPoints(t *testing.T) {
	cases := []struct {
		name string
		meta MetaSignals
		want int
	}{
		{"empty", MetaSignals{}, 0},
		{"birthday only", MetaSignals{Birthday: true}, 10},
		{"phone capped at 15", MetaSignals{Phones: 5}, 15},
		{"two emails", MetaSignals{Emails: 2}, 10},
		{"full profile", MetaSignals{
			Birthday: true, Emails: 1, Phones: 1, Address: true,
			Company: true, JobTitle: true, Notes: true, Socials: 2,
		}, 10 + 5 + 5 + 10 + 5 + 5 + 10 + 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MetadataPoints(c.meta); got != c.want {
				t.Errorf("MetadataPoints = %d, want %d", got, c.want)
			}
		})
	}
}

func TestScoreContactMissingSignalsAreZero(t *testing.T) {
	now := time.Now()
	c := ContactSignals{
		ID:        "c1",
		Frequency: FreqMonthly,
		CreatedAt: now, // zero age
		// everything else unset
	}
	sc := ScoreContact(c, now, DefaultWeights())
	if sc.Value != 0 {
		t.Errorf("score = %v, want 0 for all-missing signals", sc.Value)
	}
	if sc.TimeBoundEligible() {
		t.Error("brand-new contact should not be time_bound eligible")
	}
}

func TestScoreContactDefaultsLastContactToCreation(t *testing.T) {
	now := time.Now()
	c := ContactSignals{
		ID:        "c1",
		Frequency: FreqMonthly,
		CreatedAt: now.Add(-45 * 24 * time.Hour),
		// LastContact zero: falls back to CreatedAt, 45 days ago
	}
	sc := ScoreContact(c, now, DefaultWeights())
	if !sc.TimeBoundEligible() {
		t.Errorf("contact created 45 days ago with no interactions should be overdue (ratio %v)", sc.OverdueRatio)
	}
}

func TestScoreContactEventSignalWithoutDecay(t *testing.T) {
	// A contact seen today but with many shared events still ranks,
	// just not as time_bound.
	now := time.Now()
	c := ContactSignals{
		ID:           "c1",
		Frequency:    FreqMonthly,
		CreatedAt:    now.Add(-400 * 24 * time.Hour),
		LastContact:  now,
		SharedEvents: 12,
	}
	sc := ScoreContact(c, now, DefaultWeights())
	if sc.Decay != 0 {
		t.Errorf("decay = %v, want 0 at zero days since contact", sc.Decay)
	}
	if sc.TimeBoundEligible() {
		t.Error("contact seen today must not be time_bound eligible")
	}
	// shared events 35% (capped) + age 15% alone clears 0.4
	if sc.Value < 0.4 {
		t.Errorf("score = %v, want >= 0.4 from event and age signals alone", sc.Value)
	}
}

func TestRankContactsOrderAndTieBreak(t *testing.T) {
	now := time.Now()
	old := now.Add(-400 * 24 * time.Hour)

	// b and c are identical except c is a close friend.
	mk := func(id string, events int, close bool) ContactSignals {
		return ContactSignals{
			ID: id, Frequency: FreqMonthly, CreatedAt: old, LastContact: now,
			SharedEvents: events, CloseFriend: close,
		}
	}
	contacts := []ContactSignals{
		mk("a", 10, false),
		mk("b", 3, false),
		mk("c", 3, true),
	}

	ranked := RankContacts(contacts, now, DefaultWeights())
	if len(ranked) != 3 {
		t.Fatalf("ranked %d contacts, want 3", len(ranked))
	}
	if ranked[0].ContactID != "a" {
		t.Errorf("top contact = %s, want a", ranked[0].ContactID)
	}
	if ranked[1].ContactID != "c" {
		t.Errorf("tie-break: got %s second, want close friend c", ranked[1].ContactID)
	}
}

func TestRankContactsDeterministic(t *testing.T) {
	now := time.Now()
	old := now.Add(-100 * 24 * time.Hour)
	var contacts []ContactSignals
	for _, id := range []string{"e", "b", "d", "a", "c"} {
		contacts = append(contacts, ContactSignals{
			ID: id, Frequency: FreqMonthly, CreatedAt: old, LastContact: now,
		})
	}

	first := RankContacts(contacts, now, DefaultWeights())
	second := RankContacts(contacts, now, DefaultWeights())
	for i := range first {
		if first[i].ContactID != second[i].ContactID {
			t.Fatalf("rank %d differs between runs: %s vs %s", i, first[i].ContactID, second[i].ContactID)
		}
	}
	// Equal scores fall back to id order.
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		if first[i].ContactID != want {
			t.Errorf("rank %d = %s, want %s", i, first[i].ContactID, want)
		}
	}
}

func TestScoreReasoningMentionsOverdue(t *testing.T) {
	now := time.Now()
	c := ContactSignals{
		ID:          "c1",
		Frequency:   FreqWeekly,
		CreatedAt:   now.Add(-100 * 24 * time.Hour),
		LastContact: now.Add(-21 * 24 * time.Hour),
	}
	sc := ScoreContact(c, now, DefaultWeights())
	if !strings.Contains(sc.Reasoning, "overdue") {
		t.Errorf("reasoning %q should mention overdue (ratio %v)", sc.Reasoning, sc.OverdueRatio)
	}
}

func TestFrequencyThresholds(t *testing.T) {
	cases := []struct {
		freq Frequency
		want float64
	}{
		{FreqDaily, 1},
		{FreqWeekly, 7},
		{FreqMonthly, 30},
		{FreqYearly, 365},
		{FreqFlexible, 90},
		{Frequency(""), 30}, // unset defaults to monthly
	}
	for _, c := range cases {
		if got := c.freq.ThresholdDays(); got != c.want {
			t.Errorf("ThresholdDays(%q) = %v, want %v", c.freq, got, c.want)
		}
	}
}
