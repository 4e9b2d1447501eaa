package engine

// Conflict resolution kicks in when no window within the search horizon
// satisfies every must-attend participant. Candidate windows are ranked
// by must-attend coverage descending, ties broken by nice-to-have
// coverage descending. The ranking is always computed locally; an
// external reasoning provider is only asked to phrase the tradeoffs,
// under a hard timeout, with a templated rationale as the fallback.

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/okent/rekindle/internal/reasoning"
)

// Participant is one attendee of a proposed group gathering.
type Participant struct {
	Contact    ContactSignals
	MustAttend bool
}

// WindowCoverage reports how well one candidate window serves a
// participant set.
type WindowCoverage struct {
	Window        Window
	MustSatisfied int
	MustTotal     int
	NiceSatisfied int
	NiceTotal     int
	MissingMust   []string // contact ids
	MissingNice   []string
}

// Full reports complete must-attend coverage.
func (c WindowCoverage) Full() bool {
	return c.MustSatisfied == c.MustTotal
}

// Resolution is the outcome of a conflict-resolution pass.
type Resolution struct {
	Recommended *WindowCoverage // set when some window has full must-attend coverage
	Ranked      []WindowCoverage
	DropNice    []string // nice-to-have ids absent from the top window
	TryShorter  bool     // a shorter activity would improve must coverage
	Rationale   string
	Degraded    bool // rationale came from the template, not the provider
}

// RankWindows computes coverage for every candidate window and sorts by
// (must-attend satisfied desc, nice-to-have satisfied desc, start time).
// A participant with no known availability is assumed free; one with
// windows needs an overlap of at least the activity duration, inside
// a window compatible with their mode preference.
func RankWindows(candidates []Window, participants []Participant, avail map[string][]Window, activity time.Duration) []WindowCoverage {
	ranked := make([]WindowCoverage, 0, len(candidates))
	for _, w := range candidates {
		ranked = append(ranked, coverageFor(w, participants, avail, activity))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MustSatisfied != ranked[j].MustSatisfied {
			return ranked[i].MustSatisfied > ranked[j].MustSatisfied
		}
		if ranked[i].NiceSatisfied != ranked[j].NiceSatisfied {
			return ranked[i].NiceSatisfied > ranked[j].NiceSatisfied
		}
		return ranked[i].Window.Start.Before(ranked[j].Window.Start)
	})
	return ranked
}

func coverageFor(w Window, participants []Participant, avail map[string][]Window, activity time.Duration) WindowCoverage {
	cov := WindowCoverage{Window: w}
	for _, p := range participants {
		ok := participantFree(w, p, avail, activity)
		if p.MustAttend {
			cov.MustTotal++
			if ok {
				cov.MustSatisfied++
			} else {
				cov.MissingMust = append(cov.MissingMust, p.Contact.ID)
			}
		} else {
			cov.NiceTotal++
			if ok {
				cov.NiceSatisfied++
			} else {
				cov.MissingNice = append(cov.MissingNice, p.Contact.ID)
			}
		}
	}
	return cov
}

func participantFree(w Window, p Participant, avail map[string][]Window, activity time.Duration) bool {
	if !w.Fits(activity, p.Contact.Mode) {
		return false
	}
	windows, known := avail[p.Contact.ID]
	if !known {
		// No linked calendar for this participant; assume available.
		return true
	}
	for _, free := range windows {
		if w.Overlap(free) >= activity {
			return true
		}
	}
	return false
}

// ConflictResolver ranks alternatives and produces a rationale.
type ConflictResolver struct {
	Reasoner reasoning.Client // nil means always use the template
	Timeout  time.Duration
}

// Resolve ranks the candidate windows for the participant set. With full
// must-attend coverage available the top window is marked recommended and
// no reasoning call is made. Otherwise it proposes dropping the
// nice-to-have participants missing from the top window, flags when a
// shorter activity would unblock must-attend coverage, and asks the
// reasoning provider for a rationale, degrading to a templated one on
// any failure. Never a hard error.
func (r *ConflictResolver) Resolve(ctx context.Context, candidates []Window, participants []Participant, avail map[string][]Window, activity time.Duration) Resolution {
	ranked := RankWindows(candidates, participants, avail, activity)
	res := Resolution{Ranked: ranked}
	if len(ranked) == 0 {
		res.Rationale = "no candidate windows in the search horizon"
		res.Degraded = true
		return res
	}

	top := ranked[0]
	if top.Full() {
		res.Recommended = &ranked[0]
		res.Rationale = fmt.Sprintf("all %d must-attend free at this time", top.MustTotal)
		return res
	}

	res.DropNice = top.MissingNice
	res.TryShorter = shorterHelps(top.Window, participants, avail, activity)
	res.Rationale, res.Degraded = r.rationale(ctx, ranked)
	return res
}

func shorterHelps(w Window, participants []Participant, avail map[string][]Window, activity time.Duration) bool {
	if activity <= 30*time.Minute {
		return false
	}
	short := coverageFor(w, participants, avail, activity/2)
	full := coverageFor(w, participants, avail, activity)
	return short.MustSatisfied > full.MustSatisfied
}

func (r *ConflictResolver) rationale(ctx context.Context, ranked []WindowCoverage) (string, bool) {
	if r.Reasoner == nil {
		return FallbackRationale(ranked), true
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := r.Reasoner.Explain(ctx, reasoning.SchedulingPrompt(SummarizeRanking(ranked)))
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			log.Printf("conflict: reasoning unavailable, using template: %v", err)
		}
		return FallbackRationale(ranked), true
	}
	return strings.TrimSpace(resp.Content), false
}

// SummarizeRanking renders the ranked coverage list as the structured
// input handed to the reasoning provider.
func SummarizeRanking(ranked []WindowCoverage) string {
	var b strings.Builder
	for i, c := range ranked {
		fmt.Fprintf(&b, "%d. %s - %s: %d/%d must-attend",
			i+1,
			c.Window.Start.Format("Mon Jan 2 15:04"),
			c.Window.End.Format("15:04"),
			c.MustSatisfied, c.MustTotal)
		if c.NiceTotal > 0 {
			fmt.Fprintf(&b, ", %d/%d nice-to-have", c.NiceSatisfied, c.NiceTotal)
		}
		if len(c.MissingMust) > 0 {
			fmt.Fprintf(&b, " (missing: %s)", strings.Join(c.MissingMust, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FallbackRationale builds the degraded templated rationale from the
// local ranking.
func FallbackRationale(ranked []WindowCoverage) string {
	if len(ranked) == 0 {
		return "no candidate windows in the search horizon"
	}
	top := ranked[0]
	s := fmt.Sprintf("%d of %d must-attend free at this time", top.MustSatisfied, top.MustTotal)
	if len(top.MissingNice) > 0 {
		s += fmt.Sprintf("; could proceed without %s", strings.Join(top.MissingNice, ", "))
	}
	return s
}
