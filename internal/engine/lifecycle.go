package engine

// Suggestion lifecycle. States: pending → accepted | dismissed |
// snoozed. Accepted and dismissed are terminal; snoozed re-enters
// pending lazily once snooze_until elapses, checked on read; there is
// no background timer for it. Every transition carries an
// optimistic version check; losers get ErrConflict and must re-read.

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/okent/rekindle/internal/store"
)

// ListPending returns a user's suggestions, pending by default,
// expiring elapsed snoozes on the way.
func (e *Engine) ListPending(ctx context.Context, userID string, f store.ListFilter) ([]store.Suggestion, error) {
	if userID == "" {
		return nil, inputErrf("user id required")
	}
	sugs, err := e.DB.ListSuggestions(userID, f)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return sugs, nil
}

// Accept transitions a pending suggestion to accepted: interactions are
// logged per contact, last-contact dates reset, and the suggestion is
// published to the calendar feed.
func (e *Engine) Accept(ctx context.Context, suggestionID string) (*store.Suggestion, error) {
	s, err := e.getPending(suggestionID)
	if err != nil {
		return nil, err
	}

	if err := e.DB.Accept(s, time.Now()); err != nil {
		return nil, err
	}

	// Feed publication is best-effort: suggestion state is the source
	// of truth, the feed is a projection.
	if err := e.Feed.Publish(ctx, s); err != nil {
		log.Printf("lifecycle: publish %s: %v", s.ID, err)
	}
	return s, nil
}

// Dismiss transitions a pending suggestion to dismissed with a reason.
// "met_too_recently" also resets the contacts' last-contact dates and
// flags them for a frequency-preference re-prompt.
func (e *Engine) Dismiss(ctx context.Context, suggestionID, reason string) (*store.Suggestion, error) {
	if reason == "" {
		return nil, inputErrf("dismissal reason required")
	}
	s, err := e.getPending(suggestionID)
	if err != nil {
		return nil, err
	}

	if err := e.DB.Dismiss(s, reason, time.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

// Snooze hides a pending suggestion until the given time.
func (e *Engine) Snooze(ctx context.Context, suggestionID string, until time.Time) (*store.Suggestion, error) {
	if !until.After(time.Now()) {
		return nil, inputErrf("snooze time must be in the future")
	}
	s, err := e.getPending(suggestionID)
	if err != nil {
		return nil, err
	}

	if err := e.DB.Snooze(s, until, time.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

// Rejection explains why one id failed batch-accept validation.
type Rejection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchAccept accepts every suggestion or none: any validation failure
// (unknown id, wrong user, not pending) rejects the whole set, reported
// per id. On success all acceptance side effects run as for Accept.
func (e *Engine) BatchAccept(ctx context.Context, userID string, ids []string) (int, []Rejection, error) {
	if userID == "" {
		return 0, nil, inputErrf("user id required")
	}
	if len(ids) == 0 {
		return 0, nil, inputErrf("no suggestion ids given")
	}

	var rejections []Rejection
	sugs := make([]*store.Suggestion, 0, len(ids))
	for _, id := range ids {
		s, err := e.DB.GetSuggestion(id)
		if err != nil {
			return 0, nil, fmt.Errorf("load suggestion %s: %w", id, err)
		}
		switch {
		case s == nil:
			rejections = append(rejections, Rejection{ID: id, Reason: "not found"})
		case s.UserID != userID:
			rejections = append(rejections, Rejection{ID: id, Reason: "wrong user"})
		case s.Status != store.StatusPending:
			rejections = append(rejections, Rejection{ID: id, Reason: "already " + s.Status})
		default:
			sugs = append(sugs, s)
		}
	}
	if len(rejections) > 0 {
		return 0, rejections, nil
	}

	if err := e.DB.AcceptAll(userID, sugs, time.Now()); err != nil {
		return 0, nil, err
	}

	for _, s := range sugs {
		if err := e.Feed.Publish(ctx, s); err != nil {
			log.Printf("lifecycle: publish %s: %v", s.ID, err)
		}
	}
	return len(sugs), nil, nil
}

func (e *Engine) getPending(suggestionID string) (*store.Suggestion, error) {
	if suggestionID == "" {
		return nil, inputErrf("suggestion id required")
	}
	s, err := e.DB.GetSuggestion(suggestionID)
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	if s == nil {
		return nil, ErrNotFound
	}
	if s.Status != store.StatusPending {
		return nil, inputErrf("suggestion %s is %s, not pending", s.ID, s.Status)
	}
	return s, nil
}
