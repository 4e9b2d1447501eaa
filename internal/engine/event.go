package engine

// On-demand shared_activity triggers: a new or existing calendar event
// with spare seats generates a suggestion outside the batch cadence.
// time_bound eligibility is waived because the event itself is the
// reason to meet, but group rules (2-3 members, shared context >= 50)
// still hold.

import (
	"context"
	"fmt"
	"time"

	"github.com/okent/rekindle/internal/store"
)

// EventInvite describes a calendar event suitable for inviting contacts.
type EventInvite struct {
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Timezone   string    `json:"timezone"`
	InPerson   bool      `json:"in_person"`
	ContactIDs []string  `json:"contact_ids,omitempty"` // explicit invitees, otherwise discovered
}

// SuggestForEvent creates a shared_activity suggestion for the event,
// using the explicit invitee list when given and discovering the best
// candidate group (or single contact) otherwise.
func (e *Engine) SuggestForEvent(ctx context.Context, userID string, ev EventInvite) (*store.Suggestion, error) {
	if userID == "" {
		return nil, inputErrf("user id required")
	}
	if !ev.End.After(ev.Start) {
		return nil, inputErrf("event end must be after start")
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	contacts, err := e.Directory.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]ContactSignals, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	window := Window{Start: ev.Start, End: ev.End, Timezone: ev.Timezone, InPerson: ev.InPerson}

	coMentions, err := e.DB.CoMentionCounts(userID)
	if err != nil {
		return nil, fmt.Errorf("load co-mentions: %w", err)
	}
	joint, err := e.DB.JointInteractionCounts(userID)
	if err != nil {
		return nil, fmt.Errorf("load joint interactions: %w", err)
	}

	var members []ContactSignals
	if len(ev.ContactIDs) > 0 {
		members, err = e.explicitMembers(ev, byID, window, coMentions, joint)
		if err != nil {
			return nil, err
		}
	} else {
		members = e.discoverMembers(contacts, window, coMentions, joint)
		if len(members) == 0 {
			return nil, inputErrf("no contact fits this event")
		}
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	open, err := e.DB.OpenSuggestions(userID)
	if err != nil {
		return nil, fmt.Errorf("load open suggestions: %w", err)
	}
	key := store.ContactKeyFor(ids) + "/" + store.TriggerSharedActivity
	for _, s := range open {
		if s.ContactKey+"/"+s.TriggerType == key {
			return nil, inputErrf("an open suggestion already covers these contacts for a shared activity")
		}
	}

	scores := RankContacts(contacts, time.Now(), e.Weights)
	scoreByID := make(map[string]Score, len(scores))
	for _, sc := range scores {
		scoreByID[sc.ContactID] = sc
	}

	s := newSuggestion(userID, store.KindIndividual, ids, store.TriggerSharedActivity, &window)
	s.PriorityScore = meanScore(ids, scoreByID)
	s.Reasoning = eventReasoning(ev, len(members))
	if len(members) >= 2 {
		s.Kind = store.KindGroup
		sc := SharedContextScore(members, coMentions, joint)
		s.SharedContextScore = &sc
	}

	if err := e.DB.InsertSuggestions([]*store.Suggestion{s}); err != nil {
		return nil, fmt.Errorf("persist event suggestion: %w", err)
	}
	return s, nil
}

func (e *Engine) explicitMembers(ev EventInvite, byID map[string]ContactSignals, window Window, coMentions, joint PairCounts) ([]ContactSignals, error) {
	if len(ev.ContactIDs) > 3 {
		return nil, inputErrf("at most 3 invitees per suggestion")
	}
	seen := make(map[string]bool)
	members := make([]ContactSignals, 0, len(ev.ContactIDs))
	for _, id := range ev.ContactIDs {
		if seen[id] {
			return nil, inputErrf("duplicate invitee %s", id)
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			return nil, inputErrf("unknown contact %s", id)
		}
		if !window.Fits(c.ActivityDuration(), c.Mode) {
			return nil, inputErrf("event does not fit contact %s (duration or mode)", id)
		}
		members = append(members, c)
	}
	if len(members) >= 2 {
		if sc := SharedContextScore(members, coMentions, joint); sc < GroupQualifyScore {
			return nil, inputErrf("invitees share too little context to propose together (score %d, need %d)", sc, GroupQualifyScore)
		}
	}
	return members, nil
}

func (e *Engine) discoverMembers(contacts []ContactSignals, window Window, coMentions, joint PairCounts) []ContactSignals {
	byID := make(map[string]ContactSignals, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	for _, g := range FindGroups(contacts, coMentions, joint) {
		all := true
		members := make([]ContactSignals, 0, len(g.ContactIDs))
		for _, id := range g.ContactIDs {
			c := byID[id]
			if !window.Fits(c.ActivityDuration(), c.Mode) {
				all = false
				break
			}
			members = append(members, c)
		}
		if all {
			return members
		}
	}

	// No qualifying group fits; fall back to the single best contact.
	for _, sc := range RankContacts(contacts, time.Now(), e.Weights) {
		c := byID[sc.ContactID]
		if window.Fits(c.ActivityDuration(), c.Mode) {
			return []ContactSignals{c}
		}
	}
	return nil
}

func eventReasoning(ev EventInvite, memberCount int) string {
	title := ev.Title
	if title == "" {
		title = "an open calendar event"
	}
	if memberCount >= 2 {
		return fmt.Sprintf("shared activity: %s fits this group", title)
	}
	return fmt.Sprintf("shared activity: %s is a chance to catch up", title)
}
