package draw

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// TeamFoldMethod decides how a sorted tab is folded into pairs.
type TeamFoldMethod string

const (
	FoldPowerPaired         TeamFoldMethod = "power_paired"
	FoldInversePowerPaired  TeamFoldMethod = "inverse_power_paired"
	FoldBalancedPowerPaired TeamFoldMethod = "balanced_power_paired"
	FoldRandom              TeamFoldMethod = "random"
	FoldHalfRandom          TeamFoldMethod = "half_random"
)

// TeamAssignmentRule decides gov/opp role assignment for a fold-paired
// ballot.
type TeamAssignmentRule string

const (
	AssignRandom         TeamAssignmentRule = "random"
	AssignInvertPrevious TeamAssignmentRule = "invert_previous"
)

// NonAlignedFoldMethod decides how non-aligned speakers are paired
// into the folded ballots.
type NonAlignedFoldMethod string

const (
	NonAlignedTabOrder NonAlignedFoldMethod = "tab_order"
	NonAlignedRandom   NonAlignedFoldMethod = "random"
)

// FoldDrawConfig configures one fold-draw round.
type FoldDrawConfig struct {
	TeamFoldMethod       TeamFoldMethod
	TeamAssignmentRule   TeamAssignmentRule
	NonAlignedFoldMethod NonAlignedFoldMethod
	Seed                 int64
}

// RankedTeam is one entry of a standings tab the fold draw pairs from
// (see internal/tab for how ranks/ties are computed).
type RankedTeam struct {
	Team  TeamInfo
	Rank  int // 0-based; ties share a rank
	Total float64
}

// PreviousRoundRole records which side a team played in the round
// immediately preceding the one being folded, used by InvertPrevious.
type PreviousRoundRole map[uuid.UUID]role

// RecordGov marks a team as having played government.
func (p PreviousRoundRole) RecordGov(team uuid.UUID) {
	if team != uuid.Nil {
		p[team] = roleGov
	}
}

// RecordOpp marks a team as having played opposition.
func (p PreviousRoundRole) RecordOpp(team uuid.UUID) {
	if team != uuid.Nil {
		p[team] = roleOpp
	}
}

// FoldDrawGenerator produces a single fold-paired round from a ranked
// tab.
type FoldDrawGenerator struct {
	Config FoldDrawConfig
}

// GenerateRound pairs rankedTeams into ballots per Config, assigns
// gov/opp, and distributes nonAligned speakers across them.
func (g *FoldDrawGenerator) GenerateRound(rankedTeams []RankedTeam, previous PreviousRoundRole, nonAligned []uuid.UUID) GeneratedRound {
	rng := rand.New(rand.NewSource(g.Config.Seed))

	pairs := g.foldPairs(rng, rankedTeams)

	ballots := make([]GeneratedBallot, len(pairs))
	for i, pair := range pairs {
		gov, opp := g.assignRoles(rng, pair[0].Team.UUID, pair[1].Team.UUID, previous)
		ballots[i] = GeneratedBallot{Government: gov, Opposition: opp}
	}

	g.distributeNonAligned(rng, ballots, nonAligned)
	return GeneratedRound{Ballots: ballots}
}

// foldPairs sorts the tab (already ranked) and folds it according to
// Config.TeamFoldMethod.
func (g *FoldDrawGenerator) foldPairs(rng *rand.Rand, rankedTeams []RankedTeam) [][2]RankedTeam {
	sorted := append([]RankedTeam(nil), rankedTeams...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	n := len(sorted)
	var pairs [][2]RankedTeam

	switch g.Config.TeamFoldMethod {
	case FoldPowerPaired:
		for i := 0; i+1 < n; i += 2 {
			pairs = append(pairs, [2]RankedTeam{sorted[i], sorted[i+1]})
		}
	case FoldInversePowerPaired:
		for i := 0; i < n/2; i++ {
			pairs = append(pairs, [2]RankedTeam{sorted[i], sorted[n-1-i]})
		}
	case FoldBalancedPowerPaired:
		// Alternate halves to balance cumulative strength: top half
		// paired against bottom half in order, alternating which side
		// of the pairing the stronger team lands on so strength sums
		// across debates stay close.
		top := sorted[:n/2]
		bottom := sorted[n/2:]
		for i := 0; i < len(top) && i < len(bottom); i++ {
			if i%2 == 0 {
				pairs = append(pairs, [2]RankedTeam{top[i], bottom[len(bottom)-1-i]})
			} else {
				pairs = append(pairs, [2]RankedTeam{bottom[len(bottom)-1-i], top[i]})
			}
		}
	case FoldRandom:
		shuffled := append([]RankedTeam(nil), sorted...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for i := 0; i+1 < n; i += 2 {
			pairs = append(pairs, [2]RankedTeam{shuffled[i], shuffled[i+1]})
		}
	case FoldHalfRandom:
		// Power-paired within randomly shuffled adjacent brackets of 4,
		// approximating partial seeding with partial randomization.
		for i := 0; i+3 < n; i += 4 {
			bracket := append([]RankedTeam(nil), sorted[i:i+4]...)
			rng.Shuffle(len(bracket), func(a, b int) { bracket[a], bracket[b] = bracket[b], bracket[a] })
			pairs = append(pairs, [2]RankedTeam{bracket[0], bracket[1]}, [2]RankedTeam{bracket[2], bracket[3]})
		}
		for i := (n / 4) * 4; i+1 < n; i += 2 {
			pairs = append(pairs, [2]RankedTeam{sorted[i], sorted[i+1]})
		}
	}
	return pairs
}

// assignRoles decides gov/opp for a pair. Under InvertPrevious, each
// team switches the role it played in the previous round when a
// previous round exists; if both teams had the same role, a fair coin
// decides.
func (g *FoldDrawGenerator) assignRoles(rng *rand.Rand, a, b uuid.UUID, previous PreviousRoundRole) (gov, opp uuid.UUID) {
	if g.Config.TeamAssignmentRule != AssignInvertPrevious || previous == nil {
		if rng.Intn(2) == 0 {
			return a, b
		}
		return b, a
	}

	aPrev, aHad := previous[a]
	bPrev, bHad := previous[b]
	if !aHad || !bHad {
		if rng.Intn(2) == 0 {
			return a, b
		}
		return b, a
	}

	switch {
	case aPrev == roleGov && bPrev == roleOpp:
		return b, a // both invert: a becomes opp, b becomes gov
	case aPrev == roleOpp && bPrev == roleGov:
		return a, b
	default:
		// same role (or non-aligned) for both teams last round: fair
		// coin decides this round's assignment.
		if rng.Intn(2) == 0 {
			return a, b
		}
		return b, a
	}
}

// distributeNonAligned deals non-aligned speakers (in tab order, or
// shuffled under NonAlignedRandom) round-robin across the folded
// ballots, so ballot counts differ by at most one.
func (g *FoldDrawGenerator) distributeNonAligned(rng *rand.Rand, ballots []GeneratedBallot, nonAligned []uuid.UUID) {
	if len(ballots) == 0 {
		return
	}
	ordered := append([]uuid.UUID(nil), nonAligned...)
	if g.Config.NonAlignedFoldMethod == NonAlignedRandom {
		rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	}
	for i, speaker := range ordered {
		slot := i % len(ballots)
		ballots[slot].NonAligned = append(ballots[slot].NonAligned, speaker)
	}
}
