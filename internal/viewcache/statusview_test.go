package viewcache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

func TestStatusViewRendersRoundProgress(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	tid := uuid.New()
	s.put(&entities.Tournament{UUID: tid, Name: "Spring Open"})
	s.put(&entities.Team{UUID: uuid.New(), TournamentID: tid, Name: "A"})

	released := time.Now().UTC().Add(-time.Hour)
	pending := time.Now().UTC().Add(time.Hour)
	roundID := uuid.New()
	s.put(&entities.TournamentRound{
		UUID:            roundID,
		TournamentID:    tid,
		Index:           0,
		DrawReleaseTime: &released,
		RoundCloseTime:  &pending,
	})
	s.put(&entities.TournamentDebate{UUID: uuid.New(), RoundID: roundID, Index: 0, BallotID: uuid.New()})

	view, err := NewTournamentStatusView(ctx, s, TournamentStatusView(tid))
	if err != nil {
		t.Fatalf("NewTournamentStatusView: %v", err)
	}
	snap, err := view.ViewString(ctx)
	if err != nil {
		t.Fatalf("ViewString: %v", err)
	}

	var rendered statusSnapshot
	if err := json.Unmarshal(snap, &rendered); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rendered.Name != "Spring Open" || rendered.TeamCount != 1 {
		t.Errorf("tournament fields wrong: %+v", rendered)
	}
	if len(rendered.Rounds) != 1 {
		t.Fatalf("expected 1 round row, got %d", len(rendered.Rounds))
	}
	row := rendered.Rounds[0]
	if !row.DrawReleased {
		t.Errorf("draw release time in the past should report released")
	}
	if row.RoundClosed {
		t.Errorf("close time in the future should not report closed")
	}
	if row.DebateCount != 1 {
		t.Errorf("expected 1 debate counted, got %d", row.DebateCount)
	}
}
