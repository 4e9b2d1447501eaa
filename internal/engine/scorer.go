package engine

// Priority scoring.
//
// Each contact gets a relevance score in [0,1]: a weighted sum of five
// independently normalized signals.
//
//   - shared calendar events (35%)
//   - metadata richness (30%)
//   - contact age (15%)
//   - interaction frequency (10%)
//   - recency decay (10%)
//
// Recency decay drives time_bound eligibility: with
// ratio = daysSinceLastContact / thresholdDays, decay is 0 up to half
// the threshold, ratio/2 beyond it, capped at 1.0 (double the
// threshold). A contact is "due" only when ratio >= 1.
//
// Missing signals contribute zero, never an error. The ranked list is
// returned in full; callers apply their own confidence floor.

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Weights configures the scorer's signal mix. They should sum to 1.
type Weights struct {
	SharedEvents float64
	Metadata     float64
	ContactAge   float64
	Frequency    float64
	Recency      float64
}

// DefaultWeights returns the standard signal mix.
func DefaultWeights() Weights {
	return Weights{
		SharedEvents: 0.35,
		Metadata:     0.30,
		ContactAge:   0.15,
		Frequency:    0.10,
		Recency:      0.10,
	}
}

// Normalization caps for the raw signals.
const (
	sharedEventsCap = 10  // events
	metadataCap     = 60  // points
	contactAgeCap   = 365 // days
	frequencyCap    = 8   // interactions per month
)

// Metadata richness point values.
const (
	pointsBirthday  = 10
	pointsEmail     = 5
	pointsPhone     = 5
	pointsPhoneCap  = 15
	pointsAddress   = 10
	pointsCompany   = 5
	pointsJobTitle  = 5
	pointsNotes     = 10
	pointsSocial    = 5
)

// Score is one contact's computed priority.
type Score struct {
	ContactID    string
	Value        float64 // [0,1]
	Decay        float64 // [0,1]
	OverdueRatio float64 // daysSince / threshold, uncapped
	Reasoning    string
	CloseFriend  bool
}

// TimeBoundEligible reports whether the contact is overdue per its
// frequency preference.
func (s Score) TimeBoundEligible() bool {
	return s.OverdueRatio >= 1
}

// ScoreContact computes a single contact's priority at the given instant.
func ScoreContact(c ContactSignals, now time.Time, w Weights) Score {
	days := now.Sub(c.EffectiveLastContact()).Hours() / 24
	if days < 0 {
		days = 0
	}
	threshold := c.Frequency.ThresholdDays()
	ratio := days / threshold

	decay := DecayFactor(ratio)
	events := norm(float64(c.SharedEvents), sharedEventsCap)
	meta := norm(float64(MetadataPoints(c.Meta)), metadataCap)
	age := norm(now.Sub(c.CreatedAt).Hours()/24, contactAgeCap)
	freq := norm(c.InteractionsPerMonth, frequencyCap)

	value := w.SharedEvents*events + w.Metadata*meta + w.ContactAge*age + w.Frequency*freq + w.Recency*decay

	return Score{
		ContactID:    c.ID,
		Value:        clamp01(value),
		Decay:        decay,
		OverdueRatio: ratio,
		Reasoning:    scoreReasoning(c, days, threshold, ratio),
		CloseFriend:  c.CloseFriend,
	}
}

// RankContacts scores every contact and returns the full list in
// descending priority. Ties rank close friends first, then by id, so a
// rerun on the same snapshot is byte-identical.
func RankContacts(contacts []ContactSignals, now time.Time, w Weights) []Score {
	scores := make([]Score, 0, len(contacts))
	for _, c := range contacts {
		scores = append(scores, ScoreContact(c, now, w))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Value != scores[j].Value {
			return scores[i].Value > scores[j].Value
		}
		if scores[i].CloseFriend != scores[j].CloseFriend {
			return scores[i].CloseFriend
		}
		return scores[i].ContactID < scores[j].ContactID
	})
	return scores
}

// DecayFactor converts an overdue ratio into the recency contribution.
// Zero up to half the threshold, then ratio/2 capped at 1.0.
func DecayFactor(ratio float64) float64 {
	if ratio <= 0.5 {
		return 0
	}
	return math.Min(ratio, 2) / 2
}

// MetadataPoints sums the fixed per-field point values for a contact's
// profile richness. Phone points are capped; the normalization cap
// bounds the rest.
func MetadataPoints(m MetaSignals) int {
	points := 0
	if m.Birthday {
		points += pointsBirthday
	}
	points += m.Emails * pointsEmail
	points += min(m.Phones*pointsPhone, pointsPhoneCap)
	if m.Address {
		points += pointsAddress
	}
	if m.Company {
		points += pointsCompany
	}
	if m.JobTitle {
		points += pointsJobTitle
	}
	if m.Notes {
		points += pointsNotes
	}
	points += m.Socials * pointsSocial
	return points
}

func scoreReasoning(c ContactSignals, days, threshold, ratio float64) string {
	var parts []string
	switch {
	case ratio >= 2:
		parts = append(parts, fmt.Sprintf("long overdue: %.0f days since last contact (%s cadence)", days, c.Frequency))
	case ratio >= 1:
		parts = append(parts, fmt.Sprintf("due: %.0f days since last contact (%s cadence)", days, c.Frequency))
	default:
		parts = append(parts, fmt.Sprintf("in touch %.0f days ago", days))
	}
	if c.SharedEvents > 0 {
		parts = append(parts, fmt.Sprintf("%d shared calendar events", c.SharedEvents))
	}
	if MetadataPoints(c.Meta) >= metadataCap/2 {
		parts = append(parts, "rich profile")
	}
	if c.CloseFriend {
		parts = append(parts, "close friend")
	}
	return strings.Join(parts, "; ")
}

func norm(raw, cap float64) float64 {
	if raw <= 0 || cap <= 0 {
		return 0
	}
	return math.Min(raw, cap) / cap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
