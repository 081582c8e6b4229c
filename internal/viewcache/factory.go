package viewcache

import (
	"context"

	"tournament-engine/internal/entities"
)

// DefaultFactory dispatches a ViewSpec's Kind to the concrete
// LoadedView constructor for it. The server wires Cache.factory to
// this and never bypasses it, so every subscribable view kind has a
// real, entity-backed implementation behind it.
func DefaultFactory(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	switch spec.Kind {
	case ViewTab:
		return NewTabView(ctx, store, spec)
	case ViewDraw:
		return NewDrawView(ctx, store, spec)
	case ViewTournamentStatus:
		return NewTournamentStatusView(ctx, store, spec)
	case ViewFeedback:
		return NewFeedbackView(ctx, store, spec)
	case ViewBreak:
		return NewBreakView(ctx, store, spec)
	default:
		return nil, entities.IntegrityViolation("no view implementation registered for view kind %q", spec.Kind)
	}
}
