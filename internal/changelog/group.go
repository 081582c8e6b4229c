package changelog

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

type opKind int

const (
	opUpsert opKind = iota
	opDelete
)

type stagedOp struct {
	kind   opKind
	entity entities.Entity // set for opUpsert
	typ    entities.EntityType
	id     uuid.UUID
	// guaranteeInsert is only meaningful for opUpsert.
	guaranteeInsert bool
}

// EntityGroup is a staged set of create/update and tombstone
// operations. All members must resolve to the same tournament; adding
// an entity belonging to a different tournament than an existing
// member fails the whole group.
type EntityGroup struct {
	tournamentID uuid.UUID
	hasScope     bool
	ops          []stagedOp
	seen         map[entities.EntityType]map[uuid.UUID]bool
}

func NewEntityGroup() *EntityGroup {
	return &EntityGroup{seen: make(map[entities.EntityType]map[uuid.UUID]bool)}
}

// TournamentID returns the tournament this group is scoped to, once at
// least one member has been added.
func (g *EntityGroup) TournamentID() (uuid.UUID, bool) {
	return g.tournamentID, g.hasScope
}

func (g *EntityGroup) markSeen(t entities.EntityType, id uuid.UUID) bool {
	if g.seen[t] == nil {
		g.seen[t] = make(map[uuid.UUID]bool)
	}
	if g.seen[t][id] {
		return false
	}
	g.seen[t][id] = true
	return true
}

func (g *EntityGroup) checkScope(ctx context.Context, s entities.Store, e entities.Entity) error {
	tid, err := e.ResolveTournamentID(ctx, s)
	if err != nil {
		if entities.AsKind(err, entities.KindNotFound) {
			// The entity references a parent staged in this same group
			// and not yet committed (a debate for a round the group just
			// created); the store enforces the reference at commit time.
			return nil
		}
		return err
	}
	if tid == uuid.Nil {
		return nil // unattached template entity, e.g. a ballot not yet referenced by a debate
	}
	if !g.hasScope {
		g.tournamentID = tid
		g.hasScope = true
		return nil
	}
	if tid != g.tournamentID {
		return entities.IntegrityViolation(
			"entity group mixes tournaments %s and %s", g.tournamentID, tid)
	}
	return nil
}

// Add stages an upsert of e. guaranteeInsert is forwarded to Store.Save
// at apply time. Adding the same (type, id) twice within one group is
// an error, per the log-batch invariant. An upsert whose value matches
// what the store already holds is dropped entirely: saving an
// unchanged entity produces no write and no log entry.
func (g *EntityGroup) Add(ctx context.Context, s entities.Store, e entities.Entity, guaranteeInsert bool) error {
	if err := g.checkScope(ctx, s, e); err != nil {
		return err
	}
	if !guaranteeInsert {
		unchanged, err := g.isUnchanged(ctx, s, e)
		if err != nil {
			return err
		}
		if unchanged {
			return nil
		}
	}
	if !g.markSeen(e.EntityType(), e.EntityID()) {
		return entities.IntegrityViolation(
			"%s %s staged twice in one batch", e.EntityType(), e.EntityID())
	}
	g.ops = append(g.ops, stagedOp{kind: opUpsert, entity: e, guaranteeInsert: guaranteeInsert})
	return nil
}

// isUnchanged reports whether the store's current value for e's
// (type, id) is content-identical to e, comparing canonical JSON
// bodies. Entities the store does not hold yet are always changed;
// a marshal failure falls through to staging so the store surfaces
// the real error at apply time.
func (g *EntityGroup) isUnchanged(ctx context.Context, s entities.Store, e entities.Entity) (bool, error) {
	current, err := s.Get(ctx, e.EntityType(), e.EntityID())
	if err != nil {
		if entities.AsKind(err, entities.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	currentBody, err := json.Marshal(current)
	if err != nil {
		return false, nil
	}
	newBody, err := json.Marshal(e)
	if err != nil {
		return false, nil
	}
	return bytes.Equal(currentBody, newBody), nil
}

// Delete stages a tombstone for (t, id). The caller is responsible for
// having resolved the entity's tournament before the delete makes it
// into a group alongside other-tournament members; unlike Add, Delete
// has no entity body to resolve scope from, so it trusts the caller's
// ctx/tournament pairing implicitly via the group's existing scope.
func (g *EntityGroup) Delete(t entities.EntityType, id uuid.UUID) error {
	if !g.markSeen(t, id) {
		return entities.IntegrityViolation("%s %s staged twice in one batch", t, id)
	}
	g.ops = append(g.ops, stagedOp{kind: opDelete, typ: t, id: id})
	return nil
}

// sortedUpserts returns staged upserts in kind-order (creates/updates
// sorted by the fixed entity-kind processing order).
func (g *EntityGroup) sortedUpserts() []stagedOp {
	var ups []stagedOp
	for _, op := range g.ops {
		if op.kind == opUpsert {
			ups = append(ups, op)
		}
	}
	sort.SliceStable(ups, func(i, j int) bool {
		return entities.KindOrder(ups[i].entity.EntityType()) < entities.KindOrder(ups[j].entity.EntityType())
	})
	return ups
}

// sortedDeletes returns staged deletes in reverse kind-order.
func (g *EntityGroup) sortedDeletes() []stagedOp {
	var dels []stagedOp
	for _, op := range g.ops {
		if op.kind == opDelete {
			dels = append(dels, op)
		}
	}
	sort.SliceStable(dels, func(i, j int) bool {
		return entities.KindOrder(dels[i].typ) > entities.KindOrder(dels[j].typ)
	})
	return dels
}

// SaveAll applies all staged ops against the store in a single
// serializable transaction, aborting on any failure.
func (g *EntityGroup) SaveAll(ctx context.Context, s entities.Store) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := g.saveAllTx(ctx, s, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (g *EntityGroup) saveAllTx(ctx context.Context, s entities.Store, tx entities.Tx) error {
	for _, op := range g.sortedUpserts() {
		if err := s.SaveTx(ctx, tx, op.entity, op.guaranteeInsert); err != nil {
			return err
		}
	}
	for _, op := range g.sortedDeletes() {
		if err := s.DeleteManyTx(ctx, tx, op.typ, []uuid.UUID{op.id}); err != nil {
			return err
		}
	}
	return nil
}

// SaveLog appends one LogEntry per staged op to the tournament's log,
// all sharing a freshly minted batch-version uuid, in kind order
// (creates/updates) then reverse kind order (deletes).
func (g *EntityGroup) SaveLog(ctx context.Context, s entities.Store, log LogStore, now time.Time) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := g.saveLogTx(ctx, tx, log, now); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (g *EntityGroup) saveLogTx(ctx context.Context, tx entities.Tx, log LogStore, now time.Time) error {
	if !g.hasScope {
		return nil // nothing touched a tournament; nothing to log
	}
	entries := g.buildEntries(now)
	if len(entries) == 0 {
		return nil
	}
	return log.AppendLogTx(ctx, tx, g.tournamentID, entries)
}

func (g *EntityGroup) buildEntries(now time.Time) []LogEntry {
	version := uuid.New()
	var entries []LogEntry
	for _, op := range g.sortedUpserts() {
		entries = append(entries, LogEntry{
			Version: version, EntityType: op.entity.EntityType(), EntityID: op.entity.EntityID(), Timestamp: now,
		})
	}
	for _, op := range g.sortedDeletes() {
		entries = append(entries, LogEntry{
			Version: version, EntityType: op.typ, EntityID: op.id, Timestamp: now,
		})
	}
	return entries
}

// SaveAllAndLog performs SaveAll and SaveLog within one transaction.
func (g *EntityGroup) SaveAllAndLog(ctx context.Context, s entities.Store, log LogStore, now time.Time) error {
	if len(g.ops) == 0 {
		return nil
	}
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := g.saveAllTx(ctx, s, tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := g.saveLogTx(ctx, tx, log, now); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// IsEmpty reports whether the group has no staged operations.
func (g *EntityGroup) IsEmpty() bool { return len(g.ops) == 0 }

// Touches reports whether the group stages any op against (t, id),
// used by view cache consumers to decide whether a committed group is
// relevant to their inputs.
func (g *EntityGroup) Touches(t entities.EntityType, id uuid.UUID) bool {
	return g.seen[t] != nil && g.seen[t][id]
}

// EachUpsert calls fn for every staged upsert entity, in kind order.
func (g *EntityGroup) EachUpsert(fn func(entities.Entity)) {
	for _, op := range g.sortedUpserts() {
		fn(op.entity)
	}
}

// EachDelete calls fn for every staged delete (type, id), in reverse
// kind order.
func (g *EntityGroup) EachDelete(fn func(entities.EntityType, uuid.UUID)) {
	for _, op := range g.sortedDeletes() {
		fn(op.typ, op.id)
	}
}
