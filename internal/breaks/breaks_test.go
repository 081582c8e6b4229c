package breaks

import (
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

func makeTeamTab(n int) ([]TeamStanding, []uuid.UUID) {
	ids := make([]uuid.UUID, n)
	tab := make([]TeamStanding, n)
	for i := range tab {
		ids[i] = uuid.New()
		tab[i] = TeamStanding{TeamID: ids[i], Rank: i, Total: float64(n - i)}
	}
	return tab, ids
}

func TestTabBreakTakesTopTeamsAndNonTeamSpeakers(t *testing.T) {
	teamTab, teamIDs := makeTeamTab(8)
	speakerTab := []SpeakerStanding{
		{SpeakerID: uuid.New(), TeamID: teamIDs[0], Rank: 0},
		{SpeakerID: uuid.New(), TeamID: teamIDs[6], Rank: 1},
		{SpeakerID: uuid.New(), TeamID: teamIDs[7], Rank: 2},
	}

	in := Input{
		Config:     entities.BreakConfig{BreakType: "tab", NumDebates: 2},
		TeamTab:    teamTab,
		SpeakerTab: speakerTab,
	}
	result, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(result.BreakingTeams) != 4 {
		t.Fatalf("expected 4 breaking teams, got %d", len(result.BreakingTeams))
	}
	for i := 0; i < 4; i++ {
		if result.BreakingTeams[i] != teamIDs[i] {
			t.Errorf("expected team %d to be %s, got %s", i, teamIDs[i], result.BreakingTeams[i])
		}
	}
	// speaker from teamIDs[0] is already breaking via the team and must
	// be excluded.
	for _, s := range result.BreakingSpeakers {
		if s == speakerTab[0].SpeakerID {
			t.Errorf("speaker from an already-breaking team should not also appear in BreakingSpeakers")
		}
	}
}

func TestTabBreakFailsWithTooFewTeams(t *testing.T) {
	teamTab, _ := makeTeamTab(2)
	in := Input{Config: entities.BreakConfig{BreakType: "tab", NumDebates: 2}, TeamTab: teamTab}
	if _, err := Compute(in); err == nil {
		t.Fatalf("expected NotEnoughTeams error")
	}
}

func TestTwoThirdsBreakRequiresDivisibleByThree(t *testing.T) {
	teamTab, _ := makeTeamTab(8)
	in := Input{Config: entities.BreakConfig{BreakType: "two_thirds"}, TeamTab: teamTab}
	if _, err := Compute(in); err == nil {
		t.Fatalf("expected error for team count not divisible by 3")
	}
}

func TestTwoThirdsBreakTakesUpperTwoThirds(t *testing.T) {
	teamTab, teamIDs := makeTeamTab(9)
	in := Input{Config: entities.BreakConfig{BreakType: "two_thirds"}, TeamTab: teamTab}
	result, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(result.BreakingTeams) != 6 {
		t.Fatalf("expected 6 breaking teams, got %d", len(result.BreakingTeams))
	}
	if result.BreakingTeams[0] != teamIDs[0] {
		t.Fatalf("expected top team to break first")
	}
}

func TestTimBreakIncludesTopThirdAndNonAlignedOnlyTeams(t *testing.T) {
	teamTab, teamIDs := makeTeamTab(9)
	played := RoundParticipation{}
	for i := 0; i < 9; i++ {
		played[teamIDs[i]] = i < 6 // last 3 teams only sat non-aligned
	}
	in := Input{Config: entities.BreakConfig{BreakType: "tim"}, TeamTab: teamTab, PlayedAligned: played}
	result, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// top third (3 teams) plus the 3 non-aligned-only teams = 6.
	if len(result.BreakingTeams) != 6 {
		t.Fatalf("expected 6 breaking teams, got %d", len(result.BreakingTeams))
	}
	for _, id := range teamIDs[6:] {
		found := false
		for _, b := range result.BreakingTeams {
			if b == id {
				found = true
			}
		}
		if !found {
			t.Errorf("expected non-aligned-only team %s to break", id)
		}
	}
}

func TestKnockoutBreakRejectsIncompleteScores(t *testing.T) {
	in := Input{
		Config: entities.BreakConfig{BreakType: "knockout"},
		KnockoutResults: []KnockoutDebateResult{
			{DebateID: uuid.New(), GovTeamID: uuid.New(), OppTeamID: uuid.New(), ScoresComplete: false},
		},
	}
	if _, err := Compute(in); err == nil {
		t.Fatalf("expected KORoundIncompleteRound error")
	}
}

func TestKnockoutBreakAdvancesWinners(t *testing.T) {
	gov1, opp1 := uuid.New(), uuid.New()
	gov2, opp2 := uuid.New(), uuid.New()
	in := Input{
		Config: entities.BreakConfig{BreakType: "knockout"},
		KnockoutResults: []KnockoutDebateResult{
			{DebateID: uuid.New(), GovTeamID: gov1, OppTeamID: opp1, GovScore: 80, OppScore: 70, ScoresComplete: true},
			{DebateID: uuid.New(), GovTeamID: gov2, OppTeamID: opp2, GovScore: 60, OppScore: 90, ScoresComplete: true},
		},
		SpeakerTab: []SpeakerStanding{
			{SpeakerID: uuid.New(), TeamID: opp1, Rank: 0},
			{SpeakerID: uuid.New(), TeamID: gov2, Rank: 1},
		},
	}
	result, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(result.BreakingTeams) != 2 {
		t.Fatalf("expected 2 breaking teams, got %d", len(result.BreakingTeams))
	}
	if result.BreakingTeams[0] != gov1 || result.BreakingTeams[1] != opp2 {
		t.Fatalf("expected winners gov1 and opp2 to break, got %v", result.BreakingTeams)
	}
}

func TestKnockoutBreakTieUsesFairCoin(t *testing.T) {
	if testing.Short() {
		t.Skip("10k-run distribution check")
	}
	gov, opp := uuid.New(), uuid.New()
	const runs = 10000
	govWins := 0
	for i := 0; i < runs; i++ {
		in := Input{
			Config: entities.BreakConfig{BreakType: "knockout"},
			KnockoutResults: []KnockoutDebateResult{
				{DebateID: uuid.New(), GovTeamID: gov, OppTeamID: opp, GovScore: 75, OppScore: 75, ScoresComplete: true},
			},
		}
		result, err := Compute(in)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if result.BreakingTeams[0] == gov {
			govWins++
		}
	}
	// Fair coin over 10k trials: 3 sigma is 150 around 5000.
	if govWins < 4850 || govWins > 5150 {
		t.Errorf("tie split %d/%d outside 3 sigma of a fair coin", govWins, runs-govWins)
	}
}
