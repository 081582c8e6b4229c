package draw

import (
	"testing"

	"github.com/google/uuid"
)

func makeTeams(n int) []TeamInfo {
	teams := make([]TeamInfo, n)
	for i := range teams {
		teams[i] = TeamInfo{UUID: uuid.New(), MemberIDs: []uuid.UUID{uuid.New(), uuid.New()}}
	}
	return teams
}

func TestPreliminaryDrawRotatesEveryRoleAcrossThreeRounds(t *testing.T) {
	teams := makeTeams(9)
	ctx := RoundGenerationContext{Teams: teams}

	gen := &PreliminaryRoundGenerator{
		Evaluator:          NewEvaluator(DefaultEvaluatorConfig(), nil),
		RandomizationScale: 0.5,
		Seed:               42,
	}

	rounds, err := gen.GenerateDrawForRounds(ctx, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rounds) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(rounds))
	}

	seenGov := map[uuid.UUID]int{}
	seenOpp := map[uuid.UUID]int{}
	seenNA := map[uuid.UUID]int{}

	for _, round := range rounds {
		if len(round.Ballots) != 3 {
			t.Fatalf("expected 3 ballots per round (9 teams / 3), got %d", len(round.Ballots))
		}
		for _, b := range round.Ballots {
			seenGov[b.Government]++
			seenOpp[b.Opposition]++
			for _, na := range b.NonAligned {
				seenNA[na]++
			}
		}
	}

	for _, team := range teams {
		if seenGov[team.UUID] != 1 {
			t.Errorf("team %s played Government %d times, want exactly 1", team.UUID, seenGov[team.UUID])
		}
		if seenOpp[team.UUID] != 1 {
			t.Errorf("team %s played Opposition %d times, want exactly 1", team.UUID, seenOpp[team.UUID])
		}
	}
}

func TestPreliminaryDrawRejectsNonMultipleOfThreeTeams(t *testing.T) {
	gen := &PreliminaryRoundGenerator{Evaluator: NewEvaluator(DefaultEvaluatorConfig(), nil)}
	_, err := gen.GenerateDrawForRounds(RoundGenerationContext{Teams: makeTeams(10)}, 3)
	if err == nil {
		t.Fatalf("expected error for team count not divisible by 3")
	}
}

func TestPreliminaryDrawRejectsNonMultipleOfThreeRounds(t *testing.T) {
	gen := &PreliminaryRoundGenerator{Evaluator: NewEvaluator(DefaultEvaluatorConfig(), nil)}
	_, err := gen.GenerateDrawForRounds(RoundGenerationContext{Teams: makeTeams(9)}, 4)
	if err == nil {
		t.Fatalf("expected error for round count not divisible by 3")
	}
}
