package changelog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// memStore is a minimal in-memory entities.Store used to exercise
// EntityGroup without a MySQL connection.
type memStore struct {
	rows map[entities.EntityType]map[uuid.UUID]entities.Entity
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[entities.EntityType]map[uuid.UUID]entities.Entity)}
}

// memStore.BeginTx returns a nil Tx: tests here only exercise code
// paths (SaveTx/DeleteManyTx ignoring tx, and saveLogTx called
// directly) that never dereference it.

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

func (s *memStore) BeginTx(ctx context.Context) (entities.Tx, error) {
	return nil, nil
}

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
	entries map[uuid.UUID][]LogEntry
}

func newMemLog() *memLog { return &memLog{entries: make(map[uuid.UUID][]LogEntry)} }

func (l *memLog) AppendLogTx(ctx context.Context, tx entities.Tx, tournamentID uuid.UUID, entries []LogEntry) error {
	l.entries[tournamentID] = append(l.entries[tournamentID], entries...)
	return nil
}

func (l *memLog) LogSince(ctx context.Context, tournamentID uuid.UUID, since *uuid.UUID) ([]LogEntry, error) {
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

func TestEntityGroupRejectsDuplicateStage(t *testing.T) {
	g := NewEntityGroup()
	s := newMemStore()
	team := &entities.Team{UUID: uuid.New(), TournamentID: uuid.New(), Name: "A"}
	ctx := context.Background()

	if err := g.Add(ctx, s, team, true); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := g.Add(ctx, s, team, true); err == nil {
		t.Fatalf("expected duplicate-stage error, got nil")
	}
}

func TestEntityGroupRejectsMixedTournaments(t *testing.T) {
	g := NewEntityGroup()
	s := newMemStore()
	ctx := context.Background()

	teamA := &entities.Team{UUID: uuid.New(), TournamentID: uuid.New(), Name: "A"}
	teamB := &entities.Team{UUID: uuid.New(), TournamentID: uuid.New(), Name: "B"}

	if err := g.Add(ctx, s, teamA, true); err != nil {
		t.Fatalf("add teamA: %v", err)
	}
	if err := g.Add(ctx, s, teamB, true); err == nil {
		t.Fatalf("expected cross-tournament error, got nil")
	}
}

func TestEntityGroupKindOrdering(t *testing.T) {
	g := NewEntityGroup()
	s := newMemStore()
	ctx := context.Background()

	tid := uuid.New()
	tournament := &entities.Tournament{UUID: tid, Name: "Worlds"}
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "A"}
	participant := &entities.Participant{UUID: uuid.New(), TournamentID: tid, Name: "P", RoleKind: entities.RoleSpeaker}

	// Stage out of kind order; SaveAll must still apply tournament
	// before team before participant.
	if err := g.Add(ctx, s, participant, true); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(ctx, s, team, true); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(ctx, s, tournament, true); err != nil {
		t.Fatal(err)
	}

	var order []entities.EntityType
	g.EachUpsert(func(e entities.Entity) { order = append(order, e.EntityType()) })

	want := []entities.EntityType{entities.TypeTournament, entities.TypeTeam, entities.TypeParticipant}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestAddUnchangedEntityProducesNoLogEntry(t *testing.T) {
	g := NewEntityGroup()
	s := newMemStore()
	log := newMemLog()
	ctx := context.Background()

	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "A"}
	if err := s.Save(ctx, team, true); err != nil {
		t.Fatal(err)
	}

	same := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "A"}
	if err := g.Add(ctx, s, same, false); err != nil {
		t.Fatalf("unchanged add: %v", err)
	}
	if !g.IsEmpty() {
		t.Fatalf("an upsert matching the stored value should stage nothing")
	}
	if err := g.saveLogTx(ctx, nil, log, time.Now().UTC()); err != nil {
		t.Fatalf("saveLogTx: %v", err)
	}
	if n := len(log.entries[tid]); n != 0 {
		t.Fatalf("unchanged save grew the log by %d entries", n)
	}

	renamed := &entities.Team{UUID: team.UUID, TournamentID: tid, Name: "B"}
	if err := g.Add(ctx, s, renamed, false); err != nil {
		t.Fatalf("changed add: %v", err)
	}
	if g.IsEmpty() {
		t.Fatalf("a genuine change should stage an upsert")
	}
	if err := g.saveLogTx(ctx, nil, log, time.Now().UTC()); err != nil {
		t.Fatalf("saveLogTx: %v", err)
	}
	if n := len(log.entries[tid]); n != 1 {
		t.Fatalf("expected exactly 1 log entry for the rename, got %d", n)
	}
}

func TestEntityGroupSaveLogSharesOneVersionPerBatch(t *testing.T) {
	g := NewEntityGroup()
	s := newMemStore()
	log := newMemLog()
	ctx := context.Background()

	tid := uuid.New()
	tournament := &entities.Tournament{UUID: tid, Name: "Worlds"}
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "A"}

	if err := g.Add(ctx, s, tournament, true); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(ctx, s, team, true); err != nil {
		t.Fatal(err)
	}

	if err := g.saveLogTx(ctx, nil, log, time.Now().UTC()); err != nil {
		t.Fatalf("saveLogTx: %v", err)
	}

	entries := log.entries[tid]
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Version != entries[1].Version {
		t.Fatalf("expected both entries to share one batch version")
	}
}
