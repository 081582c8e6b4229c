package viewcache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// memStore is a minimal in-memory entities.Store, mirroring the one
// internal/changelog's tests use, sized to what the view renderers
// actually call.
type memStore struct {
	rows map[entities.EntityType]map[uuid.UUID]entities.Entity
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[entities.EntityType]map[uuid.UUID]entities.Entity)}
}

func (s *memStore) put(e entities.Entity) {
	if s.rows[e.EntityType()] == nil {
		s.rows[e.EntityType()] = make(map[uuid.UUID]entities.Entity)
	}
	s.rows[e.EntityType()][e.EntityID()] = e
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
	s.put(e)
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

func (s *memStore) BeginTx(ctx context.Context) (entities.Tx, error) { return nil, nil }

func (s *memStore) FindDebateByBallotID(ctx context.Context, ballotID uuid.UUID) (*entities.TournamentDebate, bool, error) {
	for _, e := range s.rows[entities.TypeDebate] {
		d := e.(*entities.TournamentDebate)
		if d.BallotID == ballotID {
			return d, true, nil
		}
	}
	return nil, false, nil
}

func setupSingleDebate(s *memStore, tid, roundID, govTeam, oppTeam uuid.UUID, govScore, oppScore int) uuid.UUID {
	ballotID := uuid.New()
	debateID := uuid.New()
	s.put(&entities.TournamentRound{UUID: roundID, TournamentID: tid, Index: 0})
	s.put(&entities.TournamentDebate{UUID: debateID, RoundID: roundID, Index: 0, BallotID: ballotID})
	adj := uuid.New()
	s.put(&entities.Ballot{
		UUID:       ballotID,
		Government: entities.BallotSide{TeamID: &govTeam, Scores: map[uuid.UUID]int{adj: govScore}},
		Opposition: entities.BallotSide{TeamID: &oppTeam, Scores: map[uuid.UUID]int{adj: oppScore}},
	})
	return debateID
}

func TestTabViewRendersAggregatedStandings(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	tid, roundID := uuid.New(), uuid.New()
	gov, opp := uuid.New(), uuid.New()
	s.put(&entities.Team{UUID: gov, TournamentID: tid, Name: "Gov"})
	s.put(&entities.Team{UUID: opp, TournamentID: tid, Name: "Opp"})
	setupSingleDebate(s, tid, roundID, gov, opp, 80, 75)

	view, err := NewTabView(ctx, s, TabView(tid))
	if err != nil {
		t.Fatalf("NewTabView: %v", err)
	}
	snap, err := view.ViewString(ctx)
	if err != nil {
		t.Fatalf("ViewString: %v", err)
	}
	var rendered tabSnapshot
	if err := json.Unmarshal(snap, &rendered); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(rendered.Teams) == 0 {
		t.Fatalf("expected non-empty teams payload")
	}
}

func TestTabViewIgnoresUnrelatedGroups(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	tid, roundID := uuid.New(), uuid.New()
	gov, opp := uuid.New(), uuid.New()
	setupSingleDebate(s, tid, roundID, gov, opp, 80, 75)

	view, err := NewTabView(ctx, s, TabView(tid))
	if err != nil {
		t.Fatalf("NewTabView: %v", err)
	}

	otherTid := uuid.New()
	group := changelog.NewEntityGroup()
	if err := group.Add(ctx, s, &entities.Team{UUID: uuid.New(), TournamentID: otherTid, Name: "Other"}, true); err != nil {
		t.Fatalf("stage unrelated team: %v", err)
	}

	changes, err := view.UpdateAndGetChanges(ctx, nil, group)
	if err != nil {
		t.Fatalf("UpdateAndGetChanges: %v", err)
	}
	if changes != nil {
		t.Errorf("expected nil changes for a group scoped to a different tournament, got %v", changes)
	}
}

func TestDrawViewListsDebatesInRound(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	tid, roundID := uuid.New(), uuid.New()
	gov, opp := uuid.New(), uuid.New()
	setupSingleDebate(s, tid, roundID, gov, opp, 80, 75)

	view, err := NewDrawView(ctx, s, DrawView(roundID))
	if err != nil {
		t.Fatalf("NewDrawView: %v", err)
	}
	snap, err := view.ViewString(ctx)
	if err != nil {
		t.Fatalf("ViewString: %v", err)
	}
	var rows []drawDebateRow
	if err := json.Unmarshal(snap, &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 debate row, got %d", len(rows))
	}
	if rows[0].Government == nil || *rows[0].Government != gov {
		t.Errorf("expected government team %s, got %v", gov, rows[0].Government)
	}
}
