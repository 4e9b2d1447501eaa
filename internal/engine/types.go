package engine

import (
	"time"
)

// Frequency is a contact's preferred reconnect cadence.
type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqMonthly  Frequency = "monthly"
	FreqYearly   Frequency = "yearly"
	FreqFlexible Frequency = "flexible"
)

// ThresholdDays converts a frequency preference into the overdue
// threshold used by recency decay. Unknown values fall back to monthly.
func (f Frequency) ThresholdDays() float64 {
	switch f {
	case FreqDaily:
		return 1
	case FreqWeekly:
		return 7
	case FreqMonthly:
		return 30
	case FreqYearly:
		return 365
	case FreqFlexible:
		return 90
	default:
		return 30
	}
}

// Mode is a contact's communication-mode preference.
type Mode string

const (
	ModeInPerson Mode = "in_person"
	ModeRemote   Mode = "remote"
)

// MetaSignals are the metadata-richness inputs read by the scorer.
type MetaSignals struct {
	Birthday bool
	Emails   int
	Phones   int
	Address  bool
	Company  bool
	JobTitle bool
	Notes    bool
	Socials  int
}

// ContactSignals is the read-only signal snapshot for one contact.
// LastContact zero means no interaction has ever been recorded; the
// scorer falls back to CreatedAt in that case.
type ContactSignals struct {
	ID        string
	Name      string
	Frequency Frequency
	Mode      Mode

	LastContact time.Time
	CreatedAt   time.Time

	Groups []string
	Tags   []string

	SharedEvents         int
	InteractionsPerMonth float64
	Meta                 MetaSignals

	PreferredDuration time.Duration
	CloseFriend       bool
}

// EffectiveLastContact applies the default: when no interaction exists,
// the contact's creation date stands in for the last contact.
func (c ContactSignals) EffectiveLastContact() time.Time {
	if c.LastContact.IsZero() {
		return c.CreatedAt
	}
	return c.LastContact
}

// ActivityDuration returns the contact's preferred activity duration,
// defaulting to one hour.
func (c ContactSignals) ActivityDuration() time.Duration {
	if c.PreferredDuration <= 0 {
		return time.Hour
	}
	return c.PreferredDuration
}

// Window is one open calendar interval, immutable from the engine's
// point of view. Windows arrive non-overlapping and chronologically
// ordered per user.
type Window struct {
	Start    time.Time
	End      time.Time
	Timezone string
	InPerson bool
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Fits reports whether the window can hold an activity of the given
// length for a contact with the given mode preference.
func (w Window) Fits(d time.Duration, mode Mode) bool {
	if w.Duration() < d {
		return false
	}
	if mode == ModeInPerson && !w.InPerson {
		return false
	}
	return true
}

// Overlap returns the duration both windows are simultaneously open.
func (w Window) Overlap(other Window) time.Duration {
	start := w.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := w.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
