package syncengine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

func TestFatLogJSONRoundTrip(t *testing.T) {
	tid := uuid.New()
	team := &entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "Alpha"}
	gone := uuid.New()
	v1, v2 := uuid.New(), uuid.New()

	original := FatLog{
		Log: []changelog.LogEntry{
			{Version: v1, EntityType: entities.TypeTeam, EntityID: team.UUID, Timestamp: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
			{Version: v2, EntityType: entities.TypeParticipant, EntityID: gone, Timestamp: time.Date(2026, 2, 1, 10, 5, 0, 0, time.UTC)},
		},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeTeam:        {{UUID: team.UUID, CurrentVersion: v1, Exists: true, Value: team}},
			entities.TypeParticipant: {{UUID: gone, CurrentVersion: v2, OldVersions: []uuid.UUID{v1}, Exists: false}},
		},
	}

	data, err := json.Marshal(&original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded FatLog
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded.Log) != 2 || decoded.Log[0].Version != v1 || decoded.Log[1].Version != v2 {
		t.Fatalf("log tail did not survive the round trip: %+v", decoded.Log)
	}
	teams := decoded.Entities[entities.TypeTeam]
	if len(teams) != 1 || !teams[0].Exists {
		t.Fatalf("team snapshot did not survive: %+v", teams)
	}
	if got := teams[0].Value.(*entities.Team); got.Name != "Alpha" || got.TournamentID != tid {
		t.Errorf("decoded team lost fields: %+v", got)
	}
	tomb := decoded.Entities[entities.TypeParticipant]
	if len(tomb) != 1 || tomb[0].Exists || tomb[0].Value != nil {
		t.Fatalf("tombstone did not survive: %+v", tomb)
	}
	if len(tomb[0].OldVersions) != 1 || tomb[0].OldVersions[0] != v1 {
		t.Errorf("old versions lost: %+v", tomb[0].OldVersions)
	}
}

func TestEngineRepushAfterFastForwardIsIdempotent(t *testing.T) {
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

	first, err := engine.Push(ctx, tid, SyncRequest{Log: fat}, AlwaysServer)
	if err != nil || first.Outcome != OutcomeSuccess {
		t.Fatalf("first push: %v %+v", err, first)
	}

	// Re-pushing the same tail with the advanced ancestor must succeed
	// without growing the log: the pull-then-push loop routinely
	// retries after a dropped response.
	second, err := engine.Push(ctx, tid, SyncRequest{Log: fat, LastCommonAncestor: &version}, AlwaysServer)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if second.Outcome != OutcomeSuccess {
		t.Fatalf("expected idempotent success, got %v (%s)", second.Outcome, second.RejectReason)
	}

	entries, err := log.LogSince(ctx, tid, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries[1:] {
		if e.Version == version {
			t.Errorf("re-push duplicated the original batch version in the log")
		}
	}
}

func TestValidateFatLogRejectsUnauthorizedBallotScorer(t *testing.T) {
	outsider := uuid.New()
	ballot := &entities.Ballot{
		UUID:       uuid.New(),
		Government: entities.BallotSide{Scores: map[uuid.UUID]int{outsider: 70}},
		Opposition: entities.BallotSide{Scores: map[uuid.UUID]int{}},
	}
	v := uuid.New()
	fat := FatLog{
		Log: []changelog.LogEntry{{Version: v, EntityType: entities.TypeBallot, EntityID: ballot.UUID}},
		Entities: map[entities.EntityType][]EntityEntry{
			entities.TypeBallot: {{UUID: ballot.UUID, CurrentVersion: v, Exists: true, Value: ballot}},
		},
	}
	if err := validateFatLog(fat); err == nil {
		t.Fatalf("expected structural validation to reject a score from off the panel")
	}
}
