// Package tab aggregates per-round scores from completed ballots into
// ranked team and speaker standings.
package tab

import (
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// TeamRoundRole is the role a team played in one round, as recorded in
// its detailed per-round score.
type TeamRoundRole string

const (
	TeamRoleGovernment TeamRoundRole = "government"
	TeamRoleOpposition TeamRoundRole = "opposition"
	TeamRoleNonAligned TeamRoundRole = "non_aligned"
)

// TeamRoundScore is one team's detailed score for one round.
type TeamRoundScore struct {
	RoundID     uuid.UUID
	Role        TeamRoundRole
	TeamScore   *float64 // nil for non-aligned rows, which have no team-level score
	SpeechScore float64
}

func (s TeamRoundScore) total() float64 {
	if s.TeamScore != nil {
		return *s.TeamScore + s.SpeechScore
	}
	return s.SpeechScore
}

// SpeakerRoundScore is one speaker's detailed score for one round.
// Opt-out speeches never produce a SpeakerRoundScore row (they are
// excluded from the speaker tab entirely, per spec).
type SpeakerRoundScore struct {
	RoundID        uuid.UUID
	Score          float64
	TeamRole       TeamRoundRole
	SpeechPosition int
}

// TeamTabEntry is one team's aggregated standing.
type TeamTabEntry struct {
	TeamID     uuid.UUID
	Rank       int
	TotalScore float64
	AvgScore   float64
	PerRound   map[uuid.UUID]TeamRoundScore
}

// SpeakerTabEntry is one speaker's aggregated standing.
type SpeakerTabEntry struct {
	SpeakerID  uuid.UUID
	TeamID     uuid.UUID
	Rank       int
	TotalScore float64
	AvgScore   float64
	PerRound   map[uuid.UUID]SpeakerRoundScore
}

// Speech is the minimal shape of one speech needed to fold it into a
// team/speaker tab.
type Speech struct {
	SpeakerID uuid.UUID
	Role      entities.SpeechRole
	Position  int
	IsOptOut  bool
	Score     float64 // ignored when IsOptOut
}

// DebateResult is one completed debate's scored ballot, reduced to
// what the tab needs: team identities, aggregate team scores (mean
// over adjudicators, already computed by the caller) and the speeches.
type DebateResult struct {
	RoundID      uuid.UUID
	GovTeamID    uuid.UUID
	OppTeamID    uuid.UUID
	GovTeamScore *float64
	OppTeamScore *float64
	Speeches     []Speech
}

// SpeakerTeam maps each speaker to the team they belong to, when any;
// non-aligned speakers without a team membership are only ever scored
// individually.
type SpeakerTeam map[uuid.UUID]uuid.UUID

// Aggregate folds every debate result across all rounds into ranked
// team and speaker tabs.
func Aggregate(debates []DebateResult, speakerTeam SpeakerTeam) (teamTab []TeamTabEntry, speakerTab []SpeakerTabEntry) {
	teamScores := make(map[uuid.UUID]map[uuid.UUID]TeamRoundScore) // team -> round -> score
	speakerScores := make(map[uuid.UUID]map[uuid.UUID]SpeakerRoundScore)
	teamOfSpeaker := make(map[uuid.UUID]uuid.UUID)
	for s, t := range speakerTeam {
		teamOfSpeaker[s] = t
	}

	for _, d := range debates {
		recordTeamSide(teamScores, d.RoundID, d.GovTeamID, TeamRoleGovernment, d.GovTeamScore, sumSpeechScores(d.Speeches, entities.SpeechGov))
		recordTeamSide(teamScores, d.RoundID, d.OppTeamID, TeamRoleOpposition, d.OppTeamScore, sumSpeechScores(d.Speeches, entities.SpeechOpp))

		nonAlignedScores := make(map[uuid.UUID][]float64)
		nonAlignedOptOuts := make(map[uuid.UUID]int)

		for _, sp := range d.Speeches {
			if sp.Role != entities.SpeechNonAligned {
				continue
			}
			team, hasTeam := teamOfSpeaker[sp.SpeakerID]
			if sp.IsOptOut {
				if hasTeam {
					nonAlignedOptOuts[team]++
				}
				continue
			}
			if hasTeam {
				nonAlignedScores[team] = append(nonAlignedScores[team], sp.Score)
			}
		}

		for team, scores := range nonAlignedScores {
			total := 0.0
			min := scores[0]
			for _, sc := range scores {
				total += sc
				if sc < min {
					min = sc
				}
			}
			total += min * float64(nonAlignedOptOuts[team])
			recordTeamScore(teamScores, d.RoundID, team, TeamRoleNonAligned, nil, total)
		}
		// Teams whose only non-aligned members opted out entirely still
		// contribute the min-score imputation, scored against zero peers;
		// the original system guards this the same way: no individual
		// scores means no imputable minimum, so such a team earns 0 for
		// the round rather than failing the aggregation.
		for team, count := range nonAlignedOptOuts {
			if _, already := nonAlignedScores[team]; already || count == 0 {
				continue
			}
			recordTeamScore(teamScores, d.RoundID, team, TeamRoleNonAligned, nil, 0)
		}

		for _, sp := range d.Speeches {
			if sp.IsOptOut {
				continue
			}
			role := teamRoundRoleFor(sp.Role)
			recordSpeakerScore(speakerScores, d.RoundID, sp.SpeakerID, sp.Score, role, sp.Position)
		}
	}

	teamTab = rankTeams(teamScores)
	speakerTab = rankSpeakers(speakerScores, teamOfSpeaker)
	return teamTab, speakerTab
}

func teamRoundRoleFor(r entities.SpeechRole) TeamRoundRole {
	switch r {
	case entities.SpeechGov:
		return TeamRoleGovernment
	case entities.SpeechOpp:
		return TeamRoleOpposition
	default:
		return TeamRoleNonAligned
	}
}

func sumSpeechScores(speeches []Speech, role entities.SpeechRole) float64 {
	total := 0.0
	for _, s := range speeches {
		if s.Role != role || s.IsOptOut {
			continue
		}
		total += s.Score
	}
	return total
}

func recordTeamSide(scores map[uuid.UUID]map[uuid.UUID]TeamRoundScore, roundID, teamID uuid.UUID, role TeamRoundRole, teamScore *float64, speechScore float64) {
	if teamID == uuid.Nil {
		return
	}
	recordTeamScore(scores, roundID, teamID, role, teamScore, speechScore)
}

func recordTeamScore(scores map[uuid.UUID]map[uuid.UUID]TeamRoundScore, roundID, teamID uuid.UUID, role TeamRoundRole, teamScore *float64, speechScore float64) {
	if scores[teamID] == nil {
		scores[teamID] = make(map[uuid.UUID]TeamRoundScore)
	}
	scores[teamID][roundID] = TeamRoundScore{RoundID: roundID, Role: role, TeamScore: teamScore, SpeechScore: speechScore}
}

func recordSpeakerScore(scores map[uuid.UUID]map[uuid.UUID]SpeakerRoundScore, roundID, speakerID uuid.UUID, score float64, role TeamRoundRole, position int) {
	if scores[speakerID] == nil {
		scores[speakerID] = make(map[uuid.UUID]SpeakerRoundScore)
	}
	scores[speakerID][roundID] = SpeakerRoundScore{RoundID: roundID, Score: score, TeamRole: role, SpeechPosition: position}
}

func rankTeams(scores map[uuid.UUID]map[uuid.UUID]TeamRoundScore) []TeamTabEntry {
	entries := make([]TeamTabEntry, 0, len(scores))
	for team, perRound := range scores {
		total := 0.0
		for _, s := range perRound {
			total += s.total()
		}
		avg := 0.0
		if len(perRound) > 0 {
			avg = total / float64(len(perRound))
		}
		entries = append(entries, TeamTabEntry{TeamID: team, TotalScore: total, AvgScore: avg, PerRound: perRound})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].TeamID.String() < entries[j].TeamID.String()
	})
	assignSharedRanks(len(entries), func(i int) float64 { return entries[i].TotalScore }, func(i, rank int) { entries[i].Rank = rank })
	return entries
}

func rankSpeakers(scores map[uuid.UUID]map[uuid.UUID]SpeakerRoundScore, teamOf map[uuid.UUID]uuid.UUID) []SpeakerTabEntry {
	entries := make([]SpeakerTabEntry, 0, len(scores))
	for speaker, perRound := range scores {
		total := 0.0
		for _, s := range perRound {
			total += s.Score
		}
		avg := 0.0
		if len(perRound) > 0 {
			avg = total / float64(len(perRound))
		}
		entries = append(entries, SpeakerTabEntry{SpeakerID: speaker, TeamID: teamOf[speaker], TotalScore: total, AvgScore: avg, PerRound: perRound})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].SpeakerID.String() < entries[j].SpeakerID.String()
	})
	assignSharedRanks(len(entries), func(i int) float64 { return entries[i].TotalScore }, func(i, rank int) { entries[i].Rank = rank })
	return entries
}

// assignSharedRanks implements the spec's "ties share a rank equal to
// the index of the first tied entry" rule over an already
// descending-sorted sequence.
func assignSharedRanks(n int, valueAt func(int) float64, setRank func(i, rank int)) {
	prevRank := 0
	for i := 0; i < n; i++ {
		if i > 0 && valueAt(i) == valueAt(i-1) {
			setRank(i, prevRank)
		} else {
			setRank(i, i)
			prevRank = i
		}
	}
}
