package syncengine

import (
	"context"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/utils"
)

// MergePolicy decides which side wins a (type, id) conflict during a
// non-fast-forward reconciliation.
type MergePolicy int

const (
	AlwaysLocal MergePolicy = iota
	AlwaysServer
)

// Engine runs pull/push reconciliation for one node (server or
// client) against its local store and log.
type Engine struct {
	Store entities.Store
	Log   changelog.LogStore
}

func NewEngine(store entities.Store, log changelog.LogStore) *Engine {
	return &Engine{Store: store, Log: log}
}

// Pull builds the FatLog a client needs to catch up from `since` (nil
// pulls the whole log).
func (e *Engine) Pull(ctx context.Context, tournamentID uuid.UUID, since *uuid.UUID) (*FatLog, error) {
	entries, err := changelog.NewTournamentLog(tournamentID, e.Log).Since(ctx, since)
	if err != nil {
		return nil, err
	}
	return e.buildFatLog(ctx, entries)
}

// buildFatLog bundles a log tail with the current state of every
// (type, id) it touches, so replaying it needs no further lookups.
func (e *Engine) buildFatLog(ctx context.Context, tail []changelog.LogEntry) (*FatLog, error) {
	fat := &FatLog{Log: tail, Entities: make(map[entities.EntityType][]EntityEntry)}

	type key struct {
		t  entities.EntityType
		id uuid.UUID
	}
	order := []key{}
	seen := map[key]bool{}
	versions := map[key][]uuid.UUID{}

	for _, entry := range tail {
		k := key{entry.EntityType, entry.EntityID}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
		versions[k] = append(versions[k], entry.Version)
	}

	for _, k := range order {
		ent, err := e.Store.Get(ctx, k.t, k.id)
		exists := true
		if err != nil {
			if entities.AsKind(err, entities.KindNotFound) {
				exists = false
			} else {
				return nil, err
			}
		}
		vs := versions[k]
		entryOut := EntityEntry{
			UUID:        k.id,
			OldVersions: vs[:len(vs)-1],
			Exists:      exists,
		}
		entryOut.CurrentVersion = vs[len(vs)-1]
		if exists {
			entryOut.Value = ent
		}
		fat.Entities[k.t] = append(fat.Entities[k.t], entryOut)
	}
	return fat, nil
}

// Push reconciles a client's SyncRequest against the local log and
// store, per the 3-step protocol: fast-forward when the client's
// last_common_ancestor matches the local tip, otherwise merge by
// policy, otherwise reject on structural failure.
func (e *Engine) Push(ctx context.Context, tournamentID uuid.UUID, req SyncRequest, policy MergePolicy) (SyncRequestResponse, error) {
	if err := validateFatLog(req.Log); err != nil {
		return rejectResponse(err.Error()), nil
	}

	localTip, err := e.Log.LogTip(ctx, tournamentID)
	if err != nil {
		return SyncRequestResponse{}, err
	}

	if req.Log.IsEmpty() {
		if localTip == nil {
			return successResponse(uuid.Nil, nil), nil
		}
		return successResponse(*localTip, nil), nil
	}

	// A tail that ends at its own declared ancestor is already
	// incorporated here: the client is retrying after losing our
	// previous response. Answer with the current tip and change
	// nothing.
	if req.LastCommonAncestor != nil && *req.Log.Tip() == *req.LastCommonAncestor && localTip != nil {
		return successResponse(*localTip, nil), nil
	}

	sameTip := (localTip == nil && req.LastCommonAncestor == nil) ||
		(localTip != nil && req.LastCommonAncestor != nil && *localTip == *req.LastCommonAncestor)

	if sameTip {
		if err := e.applyFatLog(ctx, tournamentID, req.Log); err != nil {
			return SyncRequestResponse{}, err
		}
		return successResponse(*req.Log.Tip(), nil), nil
	}

	if req.LastCommonAncestor == nil {
		return rejectResponse("missing last_common_ancestor against non-empty log"), nil
	}

	localTail, err := e.Log.LogSince(ctx, tournamentID, req.LastCommonAncestor)
	if err != nil {
		if entities.AsKind(err, entities.KindNotFound) {
			return rejectResponse("unknown last_common_ancestor"), nil
		}
		return SyncRequestResponse{}, err
	}

	merged, err := e.merge(ctx, tournamentID, localTail, req.Log, policy)
	if err != nil {
		return SyncRequestResponse{}, err
	}
	newTip, err := e.Log.LogTip(ctx, tournamentID)
	if err != nil {
		return SyncRequestResponse{}, err
	}
	return successResponse(*newTip, merged), nil
}

func validateFatLog(f FatLog) error {
	declared := map[string]bool{}
	for t, entries := range f.Entities {
		for _, ee := range entries {
			declared[string(t)+ee.UUID.String()] = true
			if !ee.Exists || ee.Value == nil {
				continue
			}
			switch v := ee.Value.(type) {
			case *entities.Ballot:
				if err := v.Validate(); err != nil {
					return err
				}
			case *entities.ParticipantClash:
				if err := utils.ValidateClashSeverity(v.ClashSeverity); err != nil {
					return entities.IntegrityViolation("clash %s: %v", v.UUID, err)
				}
			}
		}
	}
	for _, e := range f.Log {
		if !declared[string(e.EntityType)+e.EntityID.String()] {
			return entities.IntegrityViolation(
				"log entry for %s %s has no matching entity snapshot", e.EntityType, e.EntityID)
		}
	}
	return nil
}

// applyFatLog replays a fast-forward tail: every entity snapshot is
// saved (or tombstoned), and the tail's log entries are appended
// verbatim, preserving their original batch-version grouping.
func (e *Engine) applyFatLog(ctx context.Context, tournamentID uuid.UUID, fat FatLog) error {
	tx, err := e.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := e.applyFatLogTx(ctx, tx, tournamentID, fat); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (e *Engine) applyFatLogTx(ctx context.Context, tx entities.Tx, tournamentID uuid.UUID, fat FatLog) error {
	ordered := orderedEntityTypes(fat.Entities)
	for _, t := range ordered {
		for _, ee := range fat.Entities[t] {
			if !ee.Exists {
				if err := e.Store.DeleteManyTx(ctx, tx, t, []uuid.UUID{ee.UUID}); err != nil {
					return err
				}
				continue
			}
			if err := e.Store.SaveTx(ctx, tx, ee.Value, false); err != nil {
				return err
			}
		}
	}
	return e.Log.AppendLogTx(ctx, tx, tournamentID, fat.Log)
}

// orderedEntityTypes returns the kinds present in m sorted by the
// shared kind-order, so a fast-forward apply never violates a foreign
// key within its own transaction.
func orderedEntityTypes(m map[entities.EntityType][]EntityEntry) []entities.EntityType {
	var out []entities.EntityType
	for t := range m {
		out = append(out, t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && entities.KindOrder(out[j]) < entities.KindOrder(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// merge implements reconciliation step 2: the local tail L and remote
// tail R are combined per policy into one new batch appended to the
// local log. Non-overlapping (type,id) changes from both sides always
// merge; conflicting ones resolve by policy.
func (e *Engine) merge(ctx context.Context, tournamentID uuid.UUID, localTail []changelog.LogEntry, remote FatLog, policy MergePolicy) (*changelog.EntityGroup, error) {
	type key struct {
		t  entities.EntityType
		id uuid.UUID
	}
	localTouched := map[key]bool{}
	for _, e := range localTail {
		localTouched[key{e.EntityType, e.EntityID}] = true
	}

	group := changelog.NewEntityGroup()

	// "Local" in the policy name is relative to the pusher, not to this
	// node: AlwaysLocal means the edits the pusher is submitting (the
	// remote tail, from this reconciling node's point of view) win any
	// conflict, matching the push-side client's own local changes.
	// AlwaysServer means whatever this node already has recorded since
	// the last common ancestor wins instead. Non-conflicting entries
	// always apply regardless of policy.
	for t, entries := range remote.Entities {
		for _, ee := range entries {
			k := key{t, ee.UUID}
			conflict := localTouched[k]
			useRemote := !conflict || policy == AlwaysLocal

			if !useRemote {
				continue // this node's existing value wins; nothing to stage
			}
			if err := stageEntityEntry(ctx, e.Store, group, t, ee); err != nil {
				return nil, err
			}
		}
	}

	if err := group.SaveAllAndLog(ctx, e.Store, e.Log, nowUTC()); err != nil {
		return nil, err
	}
	return group, nil
}

func stageEntityEntry(ctx context.Context, s entities.Store, group *changelog.EntityGroup, t entities.EntityType, ee EntityEntry) error {
	if !ee.Exists {
		return group.Delete(t, ee.UUID)
	}
	return group.Add(ctx, s, ee.Value, false)
}
