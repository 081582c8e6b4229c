// Package changelog implements the per-tournament append-only change
// log and the EntityGroup batching mechanism that mutations are staged
// through before they are saved and logged together.
package changelog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// LogEntry is one row of a tournament's change log: a tag identifying
// which entity changed, in which batch, and when.
type LogEntry struct {
	Version    uuid.UUID           `json:"version"`
	EntityType entities.EntityType `json:"entity_type"`
	EntityID   uuid.UUID           `json:"entity_id"`
	Timestamp  time.Time           `json:"timestamp"`
}

// LogStore is the persistence contract the changelog package needs
// from the entity store: append-only writes plus ordered reads of one
// tournament's log, all scoped to the same transaction entities.Store
// hands out.
type LogStore interface {
	AppendLogTx(ctx context.Context, tx entities.Tx, tournamentID uuid.UUID, entries []LogEntry) error
	LogSince(ctx context.Context, tournamentID uuid.UUID, since *uuid.UUID) ([]LogEntry, error)
	LogTip(ctx context.Context, tournamentID uuid.UUID) (*uuid.UUID, error)
}

// TournamentLog is a thin read-oriented view over one tournament's
// append-only log, backed by a LogStore.
type TournamentLog struct {
	TournamentID uuid.UUID
	store        LogStore
}

func NewTournamentLog(tournamentID uuid.UUID, store LogStore) *TournamentLog {
	return &TournamentLog{TournamentID: tournamentID, store: store}
}

// Tip returns the version of the most recent log entry, or nil if the
// log is empty.
func (l *TournamentLog) Tip(ctx context.Context) (*uuid.UUID, error) {
	return l.store.LogTip(ctx, l.TournamentID)
}

// Since returns every entry appended after the given version (or the
// whole log, if since is nil), in log order.
func (l *TournamentLog) Since(ctx context.Context, since *uuid.UUID) ([]LogEntry, error) {
	return l.store.LogSince(ctx, l.TournamentID, since)
}
