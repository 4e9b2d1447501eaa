package engine

// Batch generation. One pass per user: snapshot contacts and windows
// once, score, match groups then individuals, persist. Generation is
// deterministic for a given snapshot, and open suggestions block
// re-creation, so re-running on unchanged inputs adds nothing. The
// per-user lock keeps a manual refresh and the scheduled run from
// interleaving.

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/okent/rekindle/internal/store"
)

// BatchResult reports one generation pass.
type BatchResult struct {
	Created               int  `json:"created"`
	SkippedNoAvailability bool `json:"skipped_no_availability"`
}

// GenerateBatch runs suggestion generation for one user.
func (e *Engine) GenerateBatch(ctx context.Context, userID string) (BatchResult, error) {
	if userID == "" {
		return BatchResult{}, inputErrf("user id required")
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()

	contacts, err := e.Directory.ListContacts(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	if len(contacts) == 0 {
		return BatchResult{}, nil
	}

	windows, err := e.Availability.FreeWindows(ctx, userID, now, now.Add(e.Horizon))
	if err != nil {
		return BatchResult{}, err
	}

	open, err := e.DB.OpenSuggestions(userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load open suggestions: %w", err)
	}

	if len(windows) == 0 {
		// A valid outcome: nothing to propose against, surfaced to the
		// caller as a condition rather than an error.
		return BatchResult{SkippedNoAvailability: true}, nil
	}

	coMentions, err := e.DB.CoMentionCounts(userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load co-mentions: %w", err)
	}
	joint, err := e.DB.JointInteractionCounts(userID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load joint interactions: %w", err)
	}

	created := e.generate(ctx, userID, snapshot{
		now:        now,
		contacts:   contacts,
		windows:    windows,
		open:       open,
		coMentions: coMentions,
		joint:      joint,
	})

	if err := e.DB.InsertSuggestions(created); err != nil {
		return BatchResult{}, fmt.Errorf("persist batch: %w", err)
	}

	if len(created) > 0 {
		sugs := make([]store.Suggestion, len(created))
		for i, s := range created {
			sugs[i] = *s
		}
		if err := e.Notifier.Notify(ctx, userID, sugs); err != nil {
			log.Printf("batch: notify user %s: %v", userID, err)
		}
	}

	return BatchResult{Created: len(created)}, nil
}

// snapshot is the immutable per-user input to one generation pass.
type snapshot struct {
	now        time.Time
	contacts   []ContactSignals
	windows    []Window
	open       []store.Suggestion
	coMentions PairCounts
	joint      PairCounts
}

// generate is the pure planning step: no I/O, deterministic output.
func (e *Engine) generate(ctx context.Context, userID string, snap snapshot) []*store.Suggestion {
	byID := make(map[string]ContactSignals, len(snap.contacts))
	for _, c := range snap.contacts {
		byID[c.ID] = c
	}

	// Contacts already referenced by a pending suggestion stay out of
	// this batch; open (pending or snoozed) suggestions also block their
	// exact (contact set, trigger) pair.
	openKeys := make(map[string]bool, len(snap.open))
	usedContacts := make(map[string]bool)
	for _, s := range snap.open {
		openKeys[s.ContactKey+"/"+s.TriggerType] = true
		if s.Status == store.StatusPending {
			for _, id := range s.ContactIDs {
				usedContacts[id] = true
			}
		}
	}

	scores := RankContacts(snap.contacts, snap.now, e.Weights)
	eligible := make(map[string]bool, len(scores))
	scoreByID := make(map[string]Score, len(scores))
	for _, sc := range scores {
		scoreByID[sc.ContactID] = sc
		if sc.TimeBoundEligible() {
			eligible[sc.ContactID] = true
		}
	}

	maxBatch := e.MaxPerBatch
	if maxBatch <= 0 {
		maxBatch = 10
	}

	var created []*store.Suggestion

	// Groups first: a shared gathering covers several overdue contacts
	// at once, so it outranks the individual fallbacks below.
	for _, g := range FindGroups(snap.contacts, snap.coMentions, snap.joint) {
		if len(created) >= maxBatch {
			break
		}
		if !allEligible(g.ContactIDs, eligible) {
			continue
		}
		if anyUsed(g.ContactIDs, usedContacts) {
			continue
		}
		if openKeys[store.ContactKeyFor(g.ContactIDs)+"/"+store.TriggerTimeBound] {
			continue
		}

		members := make([]ContactSignals, 0, len(g.ContactIDs))
		for _, id := range g.ContactIDs {
			members = append(members, byID[id])
		}

		window, note, ok := e.groupWindow(ctx, members, snap.windows)
		if !ok {
			continue
		}

		s := newSuggestion(userID, store.KindGroup, g.ContactIDs, store.TriggerTimeBound, &window)
		s.PriorityScore = meanScore(g.ContactIDs, scoreByID)
		score := g.Score
		s.SharedContextScore = &score
		s.Reasoning = groupReasoning(g, note)
		created = append(created, s)
		markUsed(g.ContactIDs, usedContacts)
	}

	// Individuals: descending priority, first fitting window each.
	ranked := make([]Score, 0, len(scores))
	for _, sc := range scores {
		if eligible[sc.ContactID] && !usedContacts[sc.ContactID] {
			ranked = append(ranked, sc)
		}
	}
	assigned, _ := AssignWindows(ranked, byID, snap.windows)
	for _, a := range assigned {
		if len(created) >= maxBatch {
			break
		}
		if usedContacts[a.ContactID] {
			continue
		}
		if openKeys[a.ContactID+"/"+store.TriggerTimeBound] {
			continue
		}

		s := newSuggestion(userID, store.KindIndividual, []string{a.ContactID}, store.TriggerTimeBound, &a.Window)
		s.PriorityScore = scoreByID[a.ContactID].Value
		s.Reasoning = scoreByID[a.ContactID].Reasoning
		created = append(created, s)
		usedContacts[a.ContactID] = true
	}

	return created
}

// groupWindow finds a slot for a whole group: first fit when one exists,
// otherwise the conflict resolver's top-ranked partial-coverage window
// with its rationale attached.
func (e *Engine) groupWindow(ctx context.Context, members []ContactSignals, windows []Window) (Window, string, bool) {
	if w, ok := FirstFit(members, windows); ok {
		return w, "", true
	}

	activity := longestActivity(members)
	parts := make([]Participant, len(members))
	for i, m := range members {
		parts[i] = Participant{Contact: m, MustAttend: true}
	}

	res := e.Resolver.Resolve(ctx, windows, parts, nil, activity)
	if len(res.Ranked) == 0 || res.Ranked[0].MustSatisfied == 0 {
		return Window{}, "", false
	}
	return res.Ranked[0].Window, res.Rationale, true
}

func longestActivity(members []ContactSignals) time.Duration {
	longest := time.Hour
	for _, m := range members {
		if d := m.ActivityDuration(); d > longest {
			longest = d
		}
	}
	return longest
}

func newSuggestion(userID, kind string, contactIDs []string, trigger string, w *Window) *store.Suggestion {
	s := &store.Suggestion{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		ContactIDs:  contactIDs,
		TriggerType: trigger,
		Status:      store.StatusPending,
	}
	if w != nil {
		start := w.Start.UnixMilli()
		end := w.End.UnixMilli()
		s.WindowStart = &start
		s.WindowEnd = &end
		s.WindowTZ = w.Timezone
	}
	return s
}

func groupReasoning(g GroupCandidate, conflictNote string) string {
	r := fmt.Sprintf("shared context %d/100", g.Score)
	if len(g.SharedGroups) > 0 {
		r += fmt.Sprintf("; groups in common: %v", g.SharedGroups)
	}
	if len(g.SharedTags) > 0 {
		r += fmt.Sprintf("; interests in common: %v", g.SharedTags)
	}
	if conflictNote != "" {
		r += "; " + conflictNote
	}
	return r
}

func meanScore(ids []string, scores map[string]Score) float64 {
	if len(ids) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		sum += scores[id].Value
	}
	return sum / float64(len(ids))
}

func allEligible(ids []string, eligible map[string]bool) bool {
	for _, id := range ids {
		if !eligible[id] {
			return false
		}
	}
	return true
}

func anyUsed(ids []string, used map[string]bool) bool {
	for _, id := range ids {
		if used[id] {
			return true
		}
	}
	return false
}

func markUsed(ids []string, used map[string]bool) {
	for _, id := range ids {
		used[id] = true
	}
}
