package draw

import (
	"testing"

	"github.com/google/uuid"
)

func TestFoldDrawInvertsPreviousRoundRoles(t *testing.T) {
	t1, t2 := uuid.New(), uuid.New()
	ranked := []RankedTeam{
		{Team: TeamInfo{UUID: t1}, Rank: 0},
		{Team: TeamInfo{UUID: t2}, Rank: 1},
	}
	previous := PreviousRoundRole{t1: roleGov, t2: roleOpp}

	gen := &FoldDrawGenerator{Config: FoldDrawConfig{
		TeamFoldMethod:     FoldPowerPaired,
		TeamAssignmentRule: AssignInvertPrevious,
		Seed:               7,
	}}

	round := gen.GenerateRound(ranked, previous, nil)
	if len(round.Ballots) != 1 {
		t.Fatalf("expected 1 ballot, got %d", len(round.Ballots))
	}
	b := round.Ballots[0]
	if b.Government != t2 || b.Opposition != t1 {
		t.Fatalf("expected roles inverted (t2 gov, t1 opp), got gov=%s opp=%s", b.Government, b.Opposition)
	}
}

func TestFoldDrawPowerPairedOrdersByRank(t *testing.T) {
	teams := make([]RankedTeam, 4)
	ids := make([]uuid.UUID, 4)
	for i := range teams {
		ids[i] = uuid.New()
		teams[i] = RankedTeam{Team: TeamInfo{UUID: ids[i]}, Rank: i}
	}

	gen := &FoldDrawGenerator{Config: FoldDrawConfig{TeamFoldMethod: FoldPowerPaired, Seed: 1}}
	pairs := gen.foldPairs(nil, teams)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0][0].Team.UUID != ids[0] || pairs[0][1].Team.UUID != ids[1] {
		t.Fatalf("expected (1,2) paired first")
	}
	if pairs[1][0].Team.UUID != ids[2] || pairs[1][1].Team.UUID != ids[3] {
		t.Fatalf("expected (3,4) paired second")
	}
}
