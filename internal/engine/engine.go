package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okent/rekindle/internal/feed"
	"github.com/okent/rekindle/internal/notify"
	"github.com/okent/rekindle/internal/store"
)

// ContactDirectory exposes the read-only contact signal snapshot.
type ContactDirectory interface {
	ListContacts(ctx context.Context, userID string) ([]ContactSignals, error)
}

// AvailabilityProvider exposes free calendar windows per user, already
// filtered by the user's manual availability rules.
type AvailabilityProvider interface {
	FreeWindows(ctx context.Context, userID string, from, to time.Time) ([]Window, error)
}

// Engine orchestrates scoring, matching, conflict resolution, and the
// suggestion lifecycle. Scoring and matching are pure; all I/O happens
// at this boundary.
type Engine struct {
	DB           *store.DB
	Directory    ContactDirectory
	Availability AvailabilityProvider
	Resolver     *ConflictResolver
	Feed         feed.Publisher
	Notifier     notify.Dispatcher

	Weights           Weights
	Horizon           time.Duration
	MaxPerBatch       int
	CloseFriendsGroup string
	Concurrency       int

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	stopCh chan struct{}
}

// New creates an Engine backed by the given database, with store-backed
// directory and availability providers and default tuning. Callers
// override collaborators (Resolver.Reasoner, Feed, Notifier) as needed.
func New(db *store.DB) *Engine {
	e := &Engine{
		DB:                db,
		Resolver:          &ConflictResolver{},
		Feed:              feed.Nop{},
		Notifier:          notify.Nop{},
		Weights:           DefaultWeights(),
		Horizon:           14 * 24 * time.Hour,
		MaxPerBatch:       10,
		CloseFriendsGroup: "close friends",
		Concurrency:       4,
		locks:             make(map[string]*sync.Mutex),
		stopCh:            make(chan struct{}),
	}
	e.Directory = &storeDirectory{engine: e}
	e.Availability = &storeAvailability{db: db}
	return e
}

// userLock returns the per-user advisory lock guarding suggestion
// regeneration. Scope is one regeneration pass per user, not global:
// a manual refresh and the scheduled run serialize instead of
// interleaving and duplicating suggestions.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// RunAllBatches generates a batch for every known user. Per-user work
// runs in parallel with a concurrency bound; one user's failure never
// aborts the others.
func (e *Engine) RunAllBatches(ctx context.Context) {
	userIDs, err := e.DB.ListUserIDs()
	if err != nil {
		log.Printf("batch: list users: %v", err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	limit := e.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, userID := range userIDs {
		g.Go(func() error {
			res, err := e.GenerateBatch(ctx, userID)
			if err != nil {
				// Isolate the failure; this user retries next cycle.
				log.Printf("batch: user %s: %v", userID, err)
				return nil
			}
			if res.SkippedNoAvailability {
				log.Printf("batch: user %s: no availability in horizon", userID)
			} else if res.Created > 0 {
				log.Printf("batch: user %s: created %d suggestions", userID, res.Created)
			}
			return nil
		})
	}
	g.Wait()
}

// StartBatchTimer runs a batch pass now and then on the given cadence
// until Stop is called.
func (e *Engine) StartBatchTimer(interval time.Duration) {
	e.RunAllBatches(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.RunAllBatches(context.Background())
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
}

// storeDirectory adapts store contacts into engine signal snapshots.
type storeDirectory struct {
	engine *Engine
}

func (d *storeDirectory) ListContacts(ctx context.Context, userID string) ([]ContactSignals, error) {
	rows, err := d.engine.DB.ListContacts(userID)
	if err != nil {
		return nil, &UpstreamError{Upstream: "contact directory", Err: err}
	}

	out := make([]ContactSignals, 0, len(rows))
	for _, c := range rows {
		out = append(out, d.engine.toSignals(c))
	}
	return out, nil
}

func (e *Engine) toSignals(c store.Contact) ContactSignals {
	s := ContactSignals{
		ID:                   c.ID,
		Name:                 c.Name,
		Frequency:            Frequency(c.Frequency),
		Mode:                 Mode(c.Mode),
		CreatedAt:            time.UnixMilli(c.CreatedAt),
		Groups:               c.Groups,
		Tags:                 c.Tags,
		SharedEvents:         c.SharedEvents,
		InteractionsPerMonth: c.InteractionsPerMonth,
		Meta: MetaSignals{
			Birthday: c.HasBirthday,
			Emails:   c.EmailCount,
			Phones:   c.PhoneCount,
			Address:  c.HasAddress,
			Company:  c.HasCompany,
			JobTitle: c.HasJobTitle,
			Notes:    c.HasNotes,
			Socials:  c.SocialCount,
		},
		PreferredDuration: time.Duration(c.PreferredMinutes) * time.Minute,
	}
	if c.LastContact != nil {
		s.LastContact = time.UnixMilli(*c.LastContact)
	}
	for _, g := range c.Groups {
		if g == e.CloseFriendsGroup {
			s.CloseFriend = true
			break
		}
	}
	return s
}

// storeAvailability adapts stored availability windows.
type storeAvailability struct {
	db *store.DB
}

func (a *storeAvailability) FreeWindows(ctx context.Context, userID string, from, to time.Time) ([]Window, error) {
	rows, err := a.db.FreeWindows(userID, from, to)
	if err != nil {
		return nil, &UpstreamError{Upstream: "availability provider", Err: err}
	}

	out := make([]Window, 0, len(rows))
	for _, w := range rows {
		out = append(out, Window{
			Start:    time.UnixMilli(w.StartAt),
			End:      time.UnixMilli(w.EndAt),
			Timezone: w.Timezone,
			InPerson: w.InPerson,
		})
	}
	return out, nil
}
