package syncengine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// memStore is a minimal in-memory entities.Store, sized to what the
// reconciliation engine calls.
type memStore struct {
	rows map[entities.EntityType]map[uuid.UUID]entities.Entity
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[entities.EntityType]map[uuid.UUID]entities.Entity)}
}

func (s *memStore) Get(ctx context.Context, t entities.EntityType, id uuid.UUID) (entities.Entity, error) {
	if m, ok := s.rows[t]; ok {
		if e, ok := m[id]; ok {
			return e, nil
		}
	}
	return nil, entities.NotFound("%s %s not found", t, id)
}

func (s *memStore) GetMany(ctx context.Context, t entities.EntityType, ids []uuid.UUID) ([]entities.Entity, error) {
	out := make([]entities.Entity, len(ids))
	for i, id := range ids {
		e, err := s.Get(ctx, t, id)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (s *memStore) TryGetMany(ctx context.Context, t entities.EntityType, ids []uuid.UUID) ([]entities.Entity, error) {
	out := make([]entities.Entity, len(ids))
	for i, id := range ids {
		if m, ok := s.rows[t]; ok {
			out[i] = m[id]
		}
	}
	return out, nil
}

func (s *memStore) GetAllInTournament(ctx context.Context, t entities.EntityType, tid uuid.UUID) ([]entities.Entity, error) {
	var out []entities.Entity
	for _, e := range s.rows[t] {
		got, err := e.ResolveTournamentID(ctx, s)
		if err == nil && got == tid {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Save(ctx context.Context, e entities.Entity, guaranteeInsert bool) error {
	if s.rows[e.EntityType()] == nil {
		s.rows[e.EntityType()] = make(map[uuid.UUID]entities.Entity)
	}
	s.rows[e.EntityType()][e.EntityID()] = e
	return nil
}

func (s *memStore) SaveTx(ctx context.Context, tx entities.Tx, e entities.Entity, guaranteeInsert bool) error {
	return s.Save(ctx, e, guaranteeInsert)
}

func (s *memStore) DeleteMany(ctx context.Context, t entities.EntityType, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(s.rows[t], id)
	}
	return nil
}

func (s *memStore) DeleteManyTx(ctx context.Context, tx entities.Tx, t entities.EntityType, ids []uuid.UUID) error {
	return s.DeleteMany(ctx, t, ids)
}

// noopTx stands in for a real transaction: memStore applies writes
// immediately, so commit and rollback have nothing to do.
type noopTx struct{ entities.Tx }

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func (s *memStore) BeginTx(ctx context.Context) (entities.Tx, error) { return noopTx{}, nil }

func (s *memStore) FindDebateByBallotID(ctx context.Context, ballotID uuid.UUID) (*entities.TournamentDebate, bool, error) {
	for _, e := range s.rows[entities.TypeDebate] {
		d := e.(*entities.TournamentDebate)
		if d.BallotID == ballotID {
			return d, true, nil
		}
	}
	return nil, false, nil
}

// memLog is a minimal in-memory LogStore.
type memLog struct {
	entries map[uuid.UUID][]changelog.LogEntry
}

func newMemLog() *memLog { return &memLog{entries: make(map[uuid.UUID][]changelog.LogEntry)} }

func (l *memLog) AppendLogTx(ctx context.Context, tx entities.Tx, tournamentID uuid.UUID, entries []changelog.LogEntry) error {
	l.entries[tournamentID] = append(l.entries[tournamentID], entries...)
	return nil
}

func (l *memLog) LogSince(ctx context.Context, tournamentID uuid.UUID, since *uuid.UUID) ([]changelog.LogEntry, error) {
	all := l.entries[tournamentID]
	if since == nil {
		return all, nil
	}
	for i, e := range all {
		if e.Version == *since {
			return all[i+1:], nil
		}
	}
	return nil, entities.NotFound("version not found")
}

func (l *memLog) LogTip(ctx context.Context, tournamentID uuid.UUID) (*uuid.UUID, error) {
	all := l.entries[tournamentID]
	if len(all) == 0 {
		return nil, nil
	}
	v := all[len(all)-1].Version
	return &v, nil
}

func TestEngineFastForwardPushAppliesFatLogAndAdvancesTip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	log := newMemLog()
	engine := NewEngine(store, log)

	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Alpha"}
	version := uuid.New()

	fat := FatLog{
		Log: []changelog.LogEntry{{Version: version, EntityType: entities.TypeTeam, EntityID: team.UUID}},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeTeam: {{UUID: team.UUID, CurrentVersion: version, Exists: true, Value: team}},
		},
	}

	resp, err := engine.Push(ctx, tid, SyncRequest{Log: fat, LastCommonAncestor: nil}, AlwaysServer)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", resp.Outcome, resp.RejectReason)
	}
	if resp.NewLastCommonAncestor == nil || *resp.NewLastCommonAncestor != version {
		t.Fatalf("expected new tip %s, got %v", version, resp.NewLastCommonAncestor)
	}

	got, err := store.Get(ctx, entities.TypeTeam, team.UUID)
	if err != nil {
		t.Fatalf("expected team to be applied to the store: %v", err)
	}
	if got.(*entities.Team).Name != "Alpha" {
		t.Errorf("expected applied team name Alpha, got %s", got.(*entities.Team).Name)
	}

	tip, err := log.LogTip(ctx, tid)
	if err != nil || tip == nil || *tip != version {
		t.Errorf("expected local log tip to advance to %s, got %v (err %v)", version, tip, err)
	}
}

func TestEngineRejectsPushWithMissingAncestorAgainstNonEmptyLog(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	log := newMemLog()
	engine := NewEngine(store, log)

	tid := uuid.New()
	// Seed the local log with one entry so localTip is non-nil.
	seedVersion := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Seed"}
	if err := store.Save(ctx, team, true); err != nil {
		t.Fatal(err)
	}
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: seedVersion, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	otherTeam := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Bravo"}
	pushedVersion := uuid.New()
	fat := FatLog{
		Log: []changelog.LogEntry{{Version: pushedVersion, EntityType: entities.TypeTeam, EntityID: otherTeam.UUID}},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeTeam: {{UUID: otherTeam.UUID, CurrentVersion: pushedVersion, Exists: true, Value: otherTeam}},
		},
	}

	resp, err := engine.Push(ctx, tid, SyncRequest{Log: fat, LastCommonAncestor: nil}, AlwaysServer)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Outcome != OutcomeReject {
		t.Fatalf("expected reject when ancestor is missing against a non-empty log, got %v", resp.Outcome)
	}
}

func TestEngineMergeAlwaysLocalPrefersPusherOnConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	log := newMemLog()
	engine := NewEngine(store, log)

	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Original"}
	if err := store.Save(ctx, team, true); err != nil {
		t.Fatal(err)
	}
	ancestor := uuid.New()
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: ancestor, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	// The server independently edits the same team after the ancestor.
	serverEdit := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "ServerEdited"}
	if err := store.Save(ctx, serverEdit, false); err != nil {
		t.Fatal(err)
	}
	serverVersion := uuid.New()
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: serverVersion, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	// The pusher also edited the same team, diverging from the ancestor.
	pusherEdit := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "PusherEdited"}
	pusherVersion := uuid.New()
	fat := FatLog{
		Log: []changelog.LogEntry{{Version: pusherVersion, EntityType: entities.TypeTeam, EntityID: team.UUID}},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeTeam: {{UUID: team.UUID, CurrentVersion: pusherVersion, Exists: true, Value: pusherEdit}},
		},
	}

	resp, err := engine.Push(ctx, tid, SyncRequest{Log: fat, LastCommonAncestor: &ancestor}, AlwaysLocal)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Outcome != OutcomeSuccess {
		t.Fatalf("expected merge to succeed, got %v (%s)", resp.Outcome, resp.RejectReason)
	}

	got, err := store.Get(ctx, entities.TypeTeam, team.UUID)
	if err != nil {
		t.Fatalf("get merged team: %v", err)
	}
	if got.(*entities.Team).Name != "PusherEdited" {
		t.Errorf("AlwaysLocal should let the pusher's edit win the conflict, got %q", got.(*entities.Team).Name)
	}
}

func TestEngineMergeAlwaysServerKeepsLocalOnConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	log := newMemLog()
	engine := NewEngine(store, log)

	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Original"}
	if err := store.Save(ctx, team, true); err != nil {
		t.Fatal(err)
	}
	ancestor := uuid.New()
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: ancestor, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	serverEdit := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "ServerEdited"}
	if err := store.Save(ctx, serverEdit, false); err != nil {
		t.Fatal(err)
	}
	serverVersion := uuid.New()
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: serverVersion, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	pusherEdit := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "PusherEdited"}
	pusherVersion := uuid.New()
	fat := FatLog{
		Log: []changelog.LogEntry{{Version: pusherVersion, EntityType: entities.TypeTeam, EntityID: team.UUID}},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeTeam: {{UUID: team.UUID, CurrentVersion: pusherVersion, Exists: true, Value: pusherEdit}},
		},
	}

	resp, err := engine.Push(ctx, tid, SyncRequest{Log: fat, LastCommonAncestor: &ancestor}, AlwaysServer)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Outcome != OutcomeSuccess {
		t.Fatalf("expected merge to succeed, got %v (%s)", resp.Outcome, resp.RejectReason)
	}

	got, err := store.Get(ctx, entities.TypeTeam, team.UUID)
	if err != nil {
		t.Fatalf("get merged team: %v", err)
	}
	if got.(*entities.Team).Name != "ServerEdited" {
		t.Errorf("AlwaysServer should keep this node's edit on conflict, got %q", got.(*entities.Team).Name)
	}
}

func TestEnginePullBuildsFatLogCoveringSinceVersion(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	log := newMemLog()
	engine := NewEngine(store, log)

	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Alpha"}
	if err := store.Save(ctx, team, true); err != nil {
		t.Fatal(err)
	}
	v1 := uuid.New()
	if err := log.AppendLogTx(ctx, nil, tid, []changelog.LogEntry{{Version: v1, EntityType: entities.TypeTeam, EntityID: team.UUID}}); err != nil {
		t.Fatal(err)
	}

	fat, err := engine.Pull(ctx, tid, nil)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if fat.IsEmpty() {
		t.Fatalf("expected a non-empty pull from a fresh node")
	}
	rows := fat.Entities[entities.TypeTeam]
	if len(rows) != 1 || rows[0].UUID != team.UUID || !rows[0].Exists {
		t.Fatalf("expected FatLog to bundle the team's current state, got %+v", rows)
	}

	empty, err := engine.Pull(ctx, tid, fat.Tip())
	if err != nil {
		t.Fatalf("Pull since tip: %v", err)
	}
	if !empty.IsEmpty() {
		t.Errorf("expected pulling since the current tip to return nothing new")
	}
}
