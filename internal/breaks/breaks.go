// Package breaks computes which teams, speakers and adjudicators
// advance out of a round group, for each of the tournament's break
// types.
package breaks

import (
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
	"tournament-engine/internal/utils"
)

// TeamStanding is one row of the team tab, ranked ascending (rank 0 is
// first place).
type TeamStanding struct {
	TeamID uuid.UUID
	Rank   int
	Total  float64
}

// SpeakerStanding is one row of the speaker tab.
type SpeakerStanding struct {
	SpeakerID uuid.UUID
	TeamID    uuid.UUID
	Rank      int
	Total     float64
}

// KnockoutDebateResult is one debate of the preceding knockout round,
// used to compute a KnockoutBreak.
type KnockoutDebateResult struct {
	DebateID       uuid.UUID
	GovTeamID      uuid.UUID
	OppTeamID      uuid.UUID
	GovScore       float64
	OppScore       float64
	ScoresComplete bool
}

// RoundParticipation records, for the round preceding a break, whether
// each team played government or opposition — used by TimBreak to
// find teams that only ever sat as non-aligned.
type RoundParticipation map[uuid.UUID]bool // team id -> played gov or opp

// Input bundles everything a break computation might need; individual
// break types only read the fields relevant to them.
type Input struct {
	TournamentID uuid.UUID
	Config       entities.BreakConfig

	TeamTab    []TeamStanding
	SpeakerTab []SpeakerStanding

	KnockoutResults []KnockoutDebateResult
	PlayedAligned   RoundParticipation
}

// Compute produces a TournamentBreak for the given config, per the
// rules of each break type. Manual breaks are never computed
// automatically and always return an error.
func Compute(in Input) (*entities.TournamentBreak, error) {
	switch in.Config.BreakType {
	case "tab":
		return computeTabBreak(in)
	case "two_thirds":
		return computeTwoThirdsBreak(in)
	case "knockout":
		return computeKnockoutBreak(in)
	case "tim":
		return computeTimBreak(in)
	case "manual":
		return nil, entities.ScheduleInfeasible("ManualBreak", "manual breaks are not computed automatically")
	default:
		return nil, entities.ScheduleInfeasible("UnknownBreakType", "unrecognized break type %q", in.Config.BreakType)
	}
}

func sortedTeams(tab []TeamStanding) []TeamStanding {
	sorted := append([]TeamStanding(nil), tab...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return sorted
}

func sortedSpeakers(tab []SpeakerStanding) []SpeakerStanding {
	sorted := append([]SpeakerStanding(nil), tab...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return sorted
}

func newBreak(tournamentID uuid.UUID, teams, speakers []uuid.UUID) *entities.TournamentBreak {
	return &entities.TournamentBreak{
		UUID:             entities.NewUUID(),
		TournamentID:     tournamentID,
		BreakingTeams:    teams,
		BreakingSpeakers: speakers,
	}
}

// computeTabBreak takes the top 2*num_debates teams by the team tab,
// then the top 3*num_debates speakers not already on one of those
// teams.
func computeTabBreak(in Input) (*entities.TournamentBreak, error) {
	numDebates := in.Config.NumDebates
	numTeams := 2 * numDebates
	sorted := sortedTeams(in.TeamTab)
	if len(sorted) < numTeams {
		return nil, entities.ScheduleInfeasible("NotEnoughTeams", "tab break needs %d teams, have %d", numTeams, len(sorted))
	}

	breakingTeams := make([]uuid.UUID, numTeams)
	breakingTeamSet := make(map[uuid.UUID]bool, numTeams)
	for i := 0; i < numTeams; i++ {
		breakingTeams[i] = sorted[i].TeamID
		breakingTeamSet[sorted[i].TeamID] = true
	}

	numSpeakers := 3 * numDebates
	var breakingSpeakers []uuid.UUID
	for _, s := range sortedSpeakers(in.SpeakerTab) {
		if breakingTeamSet[s.TeamID] {
			continue
		}
		breakingSpeakers = append(breakingSpeakers, s.SpeakerID)
		if len(breakingSpeakers) == numSpeakers {
			break
		}
	}

	return newBreak(in.TournamentID, breakingTeams, breakingSpeakers), nil
}

// computeTwoThirdsBreak requires the team count to divide by 3 evenly,
// takes the upper two thirds, then fills in non-team speakers below
// the team cut.
func computeTwoThirdsBreak(in Input) (*entities.TournamentBreak, error) {
	sorted := sortedTeams(in.TeamTab)
	if len(sorted)%3 != 0 {
		return nil, entities.ScheduleInfeasible("NotEnoughTeams", "two-thirds break requires a team count divisible by 3, have %d", len(sorted))
	}
	cut := (len(sorted) * 2) / 3

	breakingTeams := make([]uuid.UUID, cut)
	breakingTeamSet := make(map[uuid.UUID]bool, cut)
	for i := 0; i < cut; i++ {
		breakingTeams[i] = sorted[i].TeamID
		breakingTeamSet[sorted[i].TeamID] = true
	}

	var breakingSpeakers []uuid.UUID
	for _, s := range sortedSpeakers(in.SpeakerTab) {
		if breakingTeamSet[s.TeamID] {
			continue
		}
		breakingSpeakers = append(breakingSpeakers, s.SpeakerID)
	}

	return newBreak(in.TournamentID, breakingTeams, breakingSpeakers), nil
}

// computeKnockoutBreak requires one preceding round of complete
// knockout debates. Winners break (ties decided by a fair coin); the
// best-speaker (by cached speaker score) from each losing side also
// breaks, with the speaker list padded from the tab to half the
// number of debates.
func computeKnockoutBreak(in Input) (*entities.TournamentBreak, error) {
	if len(in.KnockoutResults) == 0 {
		return nil, entities.ScheduleInfeasible("KORoundIncompleteRound", "no preceding knockout round found")
	}
	for _, r := range in.KnockoutResults {
		if !r.ScoresComplete {
			return nil, entities.ScheduleInfeasible("KORoundIncompleteRound", "debate %s is missing scores", r.DebateID)
		}
	}

	speakerByTeam := make(map[uuid.UUID][]SpeakerStanding)
	for _, s := range in.SpeakerTab {
		speakerByTeam[s.TeamID] = append(speakerByTeam[s.TeamID], s)
	}
	for team := range speakerByTeam {
		sort.SliceStable(speakerByTeam[team], func(i, j int) bool {
			return speakerByTeam[team][i].Rank < speakerByTeam[team][j].Rank
		})
	}

	var breakingTeams []uuid.UUID
	breakingTeamSet := make(map[uuid.UUID]bool)
	var losingSideBestSpeakers []uuid.UUID

	for _, r := range in.KnockoutResults {
		winner, loser := r.GovTeamID, r.OppTeamID
		switch {
		case r.GovScore > r.OppScore:
			winner, loser = r.GovTeamID, r.OppTeamID
		case r.OppScore > r.GovScore:
			winner, loser = r.OppTeamID, r.GovTeamID
		default:
			if utils.RandomInt(2) == 0 {
				winner, loser = r.GovTeamID, r.OppTeamID
			} else {
				winner, loser = r.OppTeamID, r.GovTeamID
			}
		}
		breakingTeams = append(breakingTeams, winner)
		breakingTeamSet[winner] = true

		if best := speakerByTeam[loser]; len(best) > 0 {
			losingSideBestSpeakers = append(losingSideBestSpeakers, best[0].SpeakerID)
		}
	}

	targetSpeakerCount := len(in.KnockoutResults) / 2
	breakingSpeakers := losingSideBestSpeakers
	if len(breakingSpeakers) < targetSpeakerCount {
		already := make(map[uuid.UUID]bool, len(breakingSpeakers))
		for _, id := range breakingSpeakers {
			already[id] = true
		}
		for _, s := range sortedSpeakers(in.SpeakerTab) {
			if len(breakingSpeakers) == targetSpeakerCount {
				break
			}
			if already[s.SpeakerID] || breakingTeamSet[s.TeamID] {
				continue
			}
			breakingSpeakers = append(breakingSpeakers, s.SpeakerID)
			already[s.SpeakerID] = true
		}
	}

	return newBreak(in.TournamentID, breakingTeams, breakingSpeakers), nil
}

// computeTimBreak breaks the top third of teams by the tab, plus
// every team that did not play government or opposition in the
// preceding round (i.e. sat purely as a source of non-aligned
// speakers).
func computeTimBreak(in Input) (*entities.TournamentBreak, error) {
	sorted := sortedTeams(in.TeamTab)
	cut := len(sorted) / 3

	breakingSet := make(map[uuid.UUID]bool)
	var breakingTeams []uuid.UUID
	for i := 0; i < cut; i++ {
		breakingTeams = append(breakingTeams, sorted[i].TeamID)
		breakingSet[sorted[i].TeamID] = true
	}
	for _, s := range sorted {
		if breakingSet[s.TeamID] {
			continue
		}
		if !in.PlayedAligned[s.TeamID] {
			breakingTeams = append(breakingTeams, s.TeamID)
			breakingSet[s.TeamID] = true
		}
	}

	// Unlike TabBreak/TwoThirdsBreak, a Tim break names no separate
	// speaker cohort: speakers from breaking teams are reachable via
	// BreakingTeams already.
	return newBreak(in.TournamentID, breakingTeams, nil), nil
}
