package plan

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// memStore is a minimal in-memory entities.Store sized to what the
// plan executor reads and writes.
type memStore struct {
	rows map[entities.EntityType]map[uuid.UUID]entities.Entity
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[entities.EntityType]map[uuid.UUID]entities.Entity)}
}

// Get returns a decoded copy, like the relational store does: the
// executor mutates what it loads before staging it, and a live
// pointer would make every staged entity compare equal to "itself"
// in the group's unchanged-save check.
func (s *memStore) Get(ctx context.Context, t entities.EntityType, id uuid.UUID) (entities.Entity, error) {
	if m, ok := s.rows[t]; ok {
		if e, ok := m[id]; ok {
			body, err := json.Marshal(e)
			if err != nil {
				return nil, entities.IntegrityViolation("marshal %s %s: %v", t, id, err)
			}
			return entities.DecodeEntity(t, body)
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
	for id, e := range s.rows[t] {
		got, err := e.ResolveTournamentID(ctx, s)
		if err == nil && got == tid {
			cp, err := s.Get(ctx, t, id)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
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

// seedTournament builds a tournament with numTeams teams of three
// speakers each and numAdjudicators adjudicators.
func seedTournament(ctx context.Context, t *testing.T, s *memStore, numTeams, numAdjudicators int) uuid.UUID {
	t.Helper()
	tid := uuid.New()
	if err := s.Save(ctx, &entities.Tournament{UUID: tid, Name: "Test Open"}, true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < numTeams; i++ {
		team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Team"}
		if err := s.Save(ctx, team, true); err != nil {
			t.Fatal(err)
		}
		for j := 0; j < 3; j++ {
			teamID := team.UUID
			p := &entities.Participant{
				UUID:         uuid.New(),
				TournamentID: tid,
				Name:         "Speaker",
				RoleKind:     entities.RoleSpeaker,
				Speaker:      &entities.SpeakerRole{TeamID: &teamID},
			}
			if err := s.Save(ctx, p, true); err != nil {
				t.Fatal(err)
			}
		}
	}
	for i := 0; i < numAdjudicators; i++ {
		p := &entities.Participant{
			UUID:         uuid.New(),
			TournamentID: tid,
			Name:         "Adjudicator",
			RoleKind:     entities.RoleAdjudicator,
			Adjudicator:  &entities.AdjudicatorRole{ChairSkill: 50 + i, PanelSkill: 50 + i},
		}
		if err := s.Save(ctx, p, true); err != nil {
			t.Fatal(err)
		}
	}
	return tid
}

func TestExecuteRoundNodeStagesPreliminaryDraw(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tid := seedTournament(ctx, t, store, 3, 2)

	node := &entities.TournamentPlanNode{
		UUID:         uuid.New(),
		TournamentID: tid,
		Kind:         entities.PlanNodeRound,
		RoundConfig:  &entities.RoundGroupConfig{NumRounds: 3, DrawType: entities.DrawPreliminary},
	}
	if err := store.Save(ctx, node, true); err != nil {
		t.Fatal(err)
	}

	executor := NewExecutor(store, 42)
	group, err := executor.ExecutePlanNode(ctx, node.UUID)
	if err != nil {
		t.Fatalf("ExecutePlanNode: %v", err)
	}

	counts := map[entities.EntityType]int{}
	govCount := map[uuid.UUID]int{}
	oppCount := map[uuid.UUID]int{}
	group.EachUpsert(func(e entities.Entity) {
		counts[e.EntityType()]++
		if b, ok := e.(*entities.Ballot); ok {
			if b.Government.TeamID != nil {
				govCount[*b.Government.TeamID]++
			}
			if b.Opposition.TeamID != nil {
				oppCount[*b.Opposition.TeamID]++
			}
			if len(b.Adjudicators) == 0 {
				t.Errorf("ballot %s left without a panel despite available adjudicators", b.UUID)
			}
		}
	})

	if counts[entities.TypeRound] != 3 {
		t.Errorf("expected 3 staged rounds, got %d", counts[entities.TypeRound])
	}
	if counts[entities.TypeDebate] != 3 || counts[entities.TypeBallot] != 3 {
		t.Errorf("expected one debate+ballot per round, got %d debates %d ballots",
			counts[entities.TypeDebate], counts[entities.TypeBallot])
	}
	if counts[entities.TypePlanNode] != 1 {
		t.Errorf("expected the node itself staged with its new round ids")
	}

	// Rotation property: across 3 rounds of 3 teams, every team plays
	// government exactly once and opposition exactly once.
	for team, n := range govCount {
		if n != 1 {
			t.Errorf("team %s played government %d times, want 1", team, n)
		}
	}
	for team, n := range oppCount {
		if n != 1 {
			t.Errorf("team %s played opposition %d times, want 1", team, n)
		}
	}

	if scope, ok := group.TournamentID(); !ok || scope != tid {
		t.Errorf("group should scope to the tournament, got %v %v", scope, ok)
	}
}

func TestExecuteRoundNodeRefusesSecondDraw(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tid := seedTournament(ctx, t, store, 3, 1)

	node := &entities.TournamentPlanNode{
		UUID:         uuid.New(),
		TournamentID: tid,
		Kind:         entities.PlanNodeRound,
		RoundConfig:  &entities.RoundGroupConfig{NumRounds: 3, DrawType: entities.DrawPreliminary},
	}
	if err := store.Save(ctx, node, true); err != nil {
		t.Fatal(err)
	}

	executor := NewExecutor(store, 7)
	group, err := executor.ExecutePlanNode(ctx, node.UUID)
	if err != nil {
		t.Fatal(err)
	}
	// Commit the first execution so its debates are visible.
	group.EachUpsert(func(e entities.Entity) { store.Save(ctx, e, false) })

	if _, err := executor.ExecutePlanNode(ctx, node.UUID); err == nil {
		t.Fatalf("expected re-execution over drawn rounds to refuse")
	} else if !entities.AsKind(err, entities.KindScheduleInfeasible) {
		t.Errorf("expected a schedule error, got %v", err)
	}
}

func TestExecuteBreakNodeManualRefuses(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tid := seedTournament(ctx, t, store, 3, 0)

	node := &entities.TournamentPlanNode{
		UUID:         uuid.New(),
		TournamentID: tid,
		Kind:         entities.PlanNodeBreak,
		BreakConfig:  &entities.BreakConfig{BreakType: "manual"},
	}
	if err := store.Save(ctx, node, true); err != nil {
		t.Fatal(err)
	}

	executor := NewExecutor(store, 1)
	if _, err := executor.ExecutePlanNode(ctx, node.UUID); err == nil {
		t.Fatalf("manual break must never be computed automatically")
	}
}

func TestExecuteBreakNodeTabBreakStagesBreak(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tid := seedTournament(ctx, t, store, 2, 0)

	// One completed debate between the two teams.
	var teams []*entities.Team
	for _, e := range store.rows[entities.TypeTeam] {
		teams = append(teams, e.(*entities.Team))
	}
	round := &entities.TournamentRound{UUID: uuid.New(), TournamentID: tid, Index: 0}
	if err := store.Save(ctx, round, true); err != nil {
		t.Fatal(err)
	}
	adj := uuid.New()
	govID, oppID := teams[0].UUID, teams[1].UUID
	ballot := &entities.Ballot{
		UUID:         uuid.New(),
		Government:   entities.BallotSide{TeamID: &govID, Scores: map[uuid.UUID]int{adj: 160}},
		Opposition:   entities.BallotSide{TeamID: &oppID, Scores: map[uuid.UUID]int{adj: 150}},
		Adjudicators: []uuid.UUID{adj},
	}
	if err := store.Save(ctx, ballot, true); err != nil {
		t.Fatal(err)
	}
	debate := &entities.TournamentDebate{UUID: uuid.New(), RoundID: round.UUID, BallotID: ballot.UUID}
	if err := store.Save(ctx, debate, true); err != nil {
		t.Fatal(err)
	}

	node := &entities.TournamentPlanNode{
		UUID:         uuid.New(),
		TournamentID: tid,
		Kind:         entities.PlanNodeBreak,
		BreakConfig:  &entities.BreakConfig{BreakType: "tab", NumDebates: 1},
	}
	if err := store.Save(ctx, node, true); err != nil {
		t.Fatal(err)
	}

	executor := NewExecutor(store, 3)
	group, err := executor.ExecutePlanNode(ctx, node.UUID)
	if err != nil {
		t.Fatalf("ExecutePlanNode: %v", err)
	}

	var staged *entities.TournamentBreak
	var stagedNode *entities.TournamentPlanNode
	group.EachUpsert(func(e entities.Entity) {
		switch v := e.(type) {
		case *entities.TournamentBreak:
			staged = v
		case *entities.TournamentPlanNode:
			stagedNode = v
		}
	})
	if staged == nil {
		t.Fatalf("expected a staged break")
	}
	if len(staged.BreakingTeams) != 2 {
		t.Errorf("tab break over 1 debate should advance 2 teams, got %d", len(staged.BreakingTeams))
	}
	if staged.BreakingTeams[0] != govID {
		t.Errorf("higher-scoring team should rank first in the break")
	}
	if stagedNode == nil || stagedNode.BreakID == nil || *stagedNode.BreakID != staged.UUID {
		t.Errorf("node should be staged pointing at its break")
	}
}

func TestReindexRoundsFollowsPlanDAG(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tid := seedTournament(ctx, t, store, 0, 0)

	roundA := &entities.TournamentRound{UUID: uuid.New(), TournamentID: tid, Index: 5}
	roundB := &entities.TournamentRound{UUID: uuid.New(), TournamentID: tid, Index: 0}
	for _, r := range []*entities.TournamentRound{roundA, roundB} {
		if err := store.Save(ctx, r, true); err != nil {
			t.Fatal(err)
		}
	}

	nodeA := &entities.TournamentPlanNode{
		UUID: uuid.New(), TournamentID: tid, Kind: entities.PlanNodeRound,
		RoundConfig: &entities.RoundGroupConfig{NumRounds: 1, DrawType: entities.DrawPreliminary},
		RoundIDs:    []uuid.UUID{roundA.UUID},
	}
	nodeB := &entities.TournamentPlanNode{
		UUID: uuid.New(), TournamentID: tid, Kind: entities.PlanNodeRound,
		RoundConfig: &entities.RoundGroupConfig{NumRounds: 1, DrawType: entities.DrawFold},
		RoundIDs:    []uuid.UUID{roundB.UUID},
	}
	for _, n := range []*entities.TournamentPlanNode{nodeA, nodeB} {
		if err := store.Save(ctx, n, true); err != nil {
			t.Fatal(err)
		}
	}
	edge := &entities.TournamentPlanEdge{SourceID: nodeA.UUID, TargetID: nodeB.UUID}
	if err := store.Save(ctx, edge, true); err != nil {
		t.Fatal(err)
	}

	executor := NewExecutor(store, 0)
	group, err := executor.ReindexRounds(ctx, tid)
	if err != nil {
		t.Fatalf("ReindexRounds: %v", err)
	}

	indexOf := map[uuid.UUID]int{}
	group.EachUpsert(func(e entities.Entity) {
		if r, ok := e.(*entities.TournamentRound); ok {
			indexOf[r.UUID] = r.Index
		}
	})
	if got, ok := indexOf[roundA.UUID]; !ok || got != 0 {
		t.Errorf("node A's round should re-index to 0, got %v (staged=%v)", got, ok)
	}
	if got, ok := indexOf[roundB.UUID]; !ok || got != 1 {
		t.Errorf("node B's round should re-index to 1, got %v (staged=%v)", got, ok)
	}
}
