package notify

import (
	"context"
	"log"

	"github.com/okent/rekindle/internal/store"
)

// Dispatcher receives freshly created suggestions for delivery. The
// engine only guarantees suggestion state is correct and timely;
// delivery is the dispatcher's problem.
type Dispatcher interface {
	Notify(ctx context.Context, userID string, created []store.Suggestion) error
}

// LogDispatcher writes notification lines to the process log. It stands
// in for the SMS/email transport, which lives outside this service.
type LogDispatcher struct{}

func (LogDispatcher) Notify(ctx context.Context, userID string, created []store.Suggestion) error {
	for _, s := range created {
		log.Printf("notify: user=%s suggestion=%s kind=%s trigger=%s contacts=%d",
			userID, s.ID, s.Kind, s.TriggerType, len(s.ContactIDs))
	}
	return nil
}

// Nop discards notifications, for tests.
type Nop struct{}

func (Nop) Notify(ctx context.Context, userID string, created []store.Suggestion) error {
	return nil
}
