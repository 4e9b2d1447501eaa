package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/okent/rekindle/internal/store"
)

// Publisher pushes accepted suggestions onto the user's calendar feed
// and retracts them on cancellation.
type Publisher interface {
	Publish(ctx context.Context, s *store.Suggestion) error
	Retract(ctx context.Context, suggestionID string) error
}

// StorePublisher persists feed entries in the database; the HTTP server
// renders them as an ICS subscription feed.
type StorePublisher struct {
	DB *store.DB
}

// Publish writes a feed entry for an accepted suggestion. Suggestions
// without a proposed window have nothing to put on a calendar and are
// skipped silently.
func (p *StorePublisher) Publish(ctx context.Context, s *store.Suggestion) error {
	if s.WindowStart == nil || s.WindowEnd == nil {
		return nil
	}
	summary := "Catch up"
	if len(s.ContactIDs) > 1 {
		summary = "Get together"
	}
	summary += ": " + strings.Join(s.ContactIDs, ", ")

	entry := &store.FeedEntry{
		SuggestionID: s.ID,
		UserID:       s.UserID,
		UID:          uuid.NewString() + "@rekindle",
		Summary:      summary,
		StartAt:      *s.WindowStart,
		EndAt:        *s.WindowEnd,
	}
	if err := p.DB.PutFeedEntry(entry); err != nil {
		return fmt.Errorf("publish suggestion %s: %w", s.ID, err)
	}
	return nil
}

// Retract removes a previously published entry.
func (p *StorePublisher) Retract(ctx context.Context, suggestionID string) error {
	return p.DB.DeleteFeedEntry(suggestionID)
}

// Nop is a Publisher that does nothing, for tests and headless runs.
type Nop struct{}

func (Nop) Publish(ctx context.Context, s *store.Suggestion) error { return nil }
func (Nop) Retract(ctx context.Context, suggestionID string) error { return nil }
