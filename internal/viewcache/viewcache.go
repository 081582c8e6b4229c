// Package viewcache turns committed EntityGroups into incremental
// view-change notifications for subscribed clients. It does not
// broadcast itself (that is the websocket hub's concern) — it keeps
// subscribed views loaded and, for each committed group, re-renders
// only the views whose inputs the group touched. A snapshot requested
// through Subscribe is rendered afresh from the store.
package viewcache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// ViewSpec is a discriminated identifier for one cached view.
type ViewSpec struct {
	Kind         ViewKind
	RoundID      uuid.UUID
	TournamentID uuid.UUID
	BreakID      uuid.UUID
}

type ViewKind string

const (
	ViewDraw             ViewKind = "draw"
	ViewTab              ViewKind = "tab"
	ViewTournamentStatus ViewKind = "tournament_status"
	ViewFeedback         ViewKind = "feedback"
	ViewBreak            ViewKind = "break"
)

func DrawView(roundID uuid.UUID) ViewSpec { return ViewSpec{Kind: ViewDraw, RoundID: roundID} }
func TabView(tournamentID uuid.UUID) ViewSpec {
	return ViewSpec{Kind: ViewTab, TournamentID: tournamentID}
}
func TournamentStatusView(tournamentID uuid.UUID) ViewSpec {
	return ViewSpec{Kind: ViewTournamentStatus, TournamentID: tournamentID}
}
func FeedbackView(tournamentID uuid.UUID) ViewSpec {
	return ViewSpec{Kind: ViewFeedback, TournamentID: tournamentID}
}
func BreakView(breakID uuid.UUID) ViewSpec { return ViewSpec{Kind: ViewBreak, BreakID: breakID} }

// LoadedView is a live, subscribed view: it can render its full
// current snapshot, and it can fold a committed EntityGroup into a
// sparse map of changed JSON subtrees.
type LoadedView interface {
	// ViewString renders the view's full current snapshot as JSON.
	ViewString(ctx context.Context) (json.RawMessage, error)

	// UpdateAndGetChanges is called in a read-only transaction for
	// every committed group, regardless of whether it is relevant.
	// Returns nil when the group touched none of this view's inputs.
	UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error)
}

// ViewFactory builds a LoadedView for a spec, lazily, on first
// subscription.
type ViewFactory func(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error)

// ChangeNotification is what a Cache emits after fanning a committed
// group through the loaded views; the websocket hub forwards these to
// subscribers.
type ChangeNotification struct {
	View         ViewSpec
	UpdatedPaths map[string]json.RawMessage
}

// Cache maps ViewSpec to LoadedView, loading lazily and fanning every
// committed group through all currently loaded views.
type Cache struct {
	mu      sync.RWMutex
	store   entities.Store
	factory ViewFactory
	loaded  map[ViewSpec]LoadedView
	logger  func(format string, args ...interface{})
}

func NewCache(store entities.Store, factory ViewFactory, logger func(format string, args ...interface{})) *Cache {
	return &Cache{
		store:   store,
		factory: factory,
		loaded:  make(map[ViewSpec]LoadedView),
		logger:  logger,
	}
}

// Subscribe loads (or reuses) the view for spec and returns its
// current snapshot.
func (c *Cache) Subscribe(ctx context.Context, spec ViewSpec) (json.RawMessage, error) {
	view, err := c.loadOrGet(ctx, spec)
	if err != nil {
		return nil, err
	}
	return view.ViewString(ctx)
}

func (c *Cache) loadOrGet(ctx context.Context, spec ViewSpec) (LoadedView, error) {
	c.mu.RLock()
	view, ok := c.loaded[spec]
	c.mu.RUnlock()
	if ok {
		return view, nil
	}

	view, err := c.factory(ctx, c.store, spec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.loaded[spec]; ok {
		return existing, nil // another goroutine won the race
	}
	c.loaded[spec] = view
	return view, nil
}

// Unsubscribe drops a view from the cache; the cost of reloading it is
// acceptable since eviction carries no correctness requirement.
func (c *Cache) Unsubscribe(spec ViewSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loaded, spec)
}

// Notify fans a committed group through every loaded view in a
// read-only transaction, returning one ChangeNotification per view the
// group actually touched. A failing view is logged and swallowed:
// committed store state remains authoritative regardless of
// notification delivery.
func (c *Cache) Notify(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) []ChangeNotification {
	c.mu.RLock()
	views := make(map[ViewSpec]LoadedView, len(c.loaded))
	for k, v := range c.loaded {
		views[k] = v
	}
	c.mu.RUnlock()

	var out []ChangeNotification
	for spec, view := range views {
		changes, err := view.UpdateAndGetChanges(ctx, tx, group)
		if err != nil {
			if c.logger != nil {
				c.logger("view cache: view %v failed to update: %v", spec, err)
			}
			continue
		}
		if changes == nil {
			continue
		}
		out = append(out, ChangeNotification{View: spec, UpdatedPaths: changes})
	}
	return out
}
