package draw

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// RoundGenerationContext is the tournament population a draw is
// generated against.
type RoundGenerationContext struct {
	Teams        []TeamInfo
	Speakers     []uuid.UUID
	Adjudicators []uuid.UUID
}

// TeamInfo is the subset of a Team's shape the draw engine needs.
type TeamInfo struct {
	UUID      uuid.UUID
	MemberIDs []uuid.UUID
}

// GeneratedBallot is one produced pairing, independent of any debate
// row it will eventually be attached to.
type GeneratedBallot struct {
	Government uuid.UUID
	Opposition uuid.UUID
	NonAligned []uuid.UUID
}

// GeneratedRound is the ballots produced for one round.
type GeneratedRound struct {
	Ballots []GeneratedBallot
}

// role is the three-way rotation used by the preliminary draw.
type role int

const (
	roleGov role = iota
	roleOpp
	roleNonAligned
)

// PreliminaryRoundGenerator produces N rounds (N divisible by 3) of
// 3-bucket rotating role assignment for a team count divisible by 3,
// steering opposition/non-aligned placement away from clashes via the
// shared Evaluator.
type PreliminaryRoundGenerator struct {
	Evaluator          *Evaluator
	RandomizationScale float64 // in [0,1]; 0 = pure min-cost greedy, 1 = pure random tie-breaking
	Seed               int64
}

// GenerateDrawForRounds is the entry point: validates team/round
// counts, then produces numRounds worth of ballots, updating the
// evaluator after each round so later rounds avoid rematches.
func (g *PreliminaryRoundGenerator) GenerateDrawForRounds(ctx RoundGenerationContext, numRounds int) ([]GeneratedRound, error) {
	numTeams := len(ctx.Teams)
	if numTeams == 0 {
		return nil, entities.ScheduleInfeasible("IncorrectTeamCount", "preliminary draw requires at least one team")
	}
	if numTeams%3 != 0 {
		return nil, entities.ScheduleInfeasible("IncorrectTeamCount", "team count %d is not divisible by 3", numTeams)
	}
	if numRounds%3 != 0 {
		return nil, entities.ScheduleInfeasible("IncorrectRoundCount", "round count %d is not divisible by 3", numRounds)
	}

	rng := rand.New(rand.NewSource(g.Seed))

	teams := append([]TeamInfo(nil), ctx.Teams...)
	rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })

	bucketSize := numTeams / 3
	buckets := [3][]TeamInfo{
		append([]TeamInfo(nil), teams[0:bucketSize]...),
		append([]TeamInfo(nil), teams[bucketSize:2*bucketSize]...),
		append([]TeamInfo(nil), teams[2*bucketSize:]...),
	}

	roleSequence := []role{roleGov, roleOpp, roleNonAligned}
	rng.Shuffle(len(roleSequence), func(i, j int) { roleSequence[i], roleSequence[j] = roleSequence[j], roleSequence[i] })

	var rounds []GeneratedRound
	for r := 0; r < numRounds; r++ {
		govBucket := buckets[bucketForRole(roleSequence, r, roleGov)]
		oppBucket := buckets[bucketForRole(roleSequence, r, roleOpp)]
		naBucket := buckets[bucketForRole(roleSequence, r, roleNonAligned)]

		generated := g.assignTeamsToBallots(rng, govBucket, oppBucket, naBucket)
		rounds = append(rounds, GeneratedRound{Ballots: generated})

		for _, b := range generated {
			g.Evaluator.ClashMap.AddDynamicClashesFromBallot(g.Evaluator.Config, DrawnBallot{
				Gov: b.Government, Opp: b.Opposition, NonAligned: b.NonAligned,
			})
		}
	}
	return rounds, nil
}

// bucketForRole finds which bucket index plays `want` in round r,
// given the (shuffled) role sequence rotated by r mod 3.
func bucketForRole(roleSequence []role, r int, want role) int {
	for bucket := 0; bucket < 3; bucket++ {
		if roleSequence[(r+bucket)%3] == want {
			return bucket
		}
	}
	panic("unreachable: role sequence always contains all three roles")
}

// assignTeamsToBallots places one ballot per government team: a
// random permutation decides which government plays which debate
// slot, then opposition and each non-aligned seat are filled by a
// min-cost greedy assignment against the evaluator, blended with
// configurable randomization.
func (g *PreliminaryRoundGenerator) assignTeamsToBallots(rng *rand.Rand, govBucket, oppBucket, naBucket []TeamInfo) []GeneratedBallot {
	gov := append([]TeamInfo(nil), govBucket...)
	rng.Shuffle(len(gov), func(i, j int) { gov[i], gov[j] = gov[j], gov[i] })

	ballots := make([]GeneratedBallot, len(gov))
	for i, t := range gov {
		ballots[i] = GeneratedBallot{Government: t.UUID}
	}

	present := make(map[uuid.UUID]map[uuid.UUID]ParticipantKind, len(ballots))
	for i, b := range ballots {
		m := make(map[uuid.UUID]ParticipantKind)
		for _, mem := range gov[i].MemberIDs {
			m[mem] = KindTeamMember
		}
		present[b.Government] = m
	}

	oppAssignment := g.assignSlot(rng, ballots, present, oppBucket, func(b *GeneratedBallot, team uuid.UUID) { b.Opposition = team })
	for slot, team := range oppAssignment {
		for _, mem := range team.MemberIDs {
			present[ballots[slot].Government][mem] = KindTeamMember
		}
	}

	// Three non-aligned seats, one drawn per team in naBucket (each
	// team contributes one member per position bucket).
	for position := 0; position < 3; position++ {
		posBucket := naBucketMembersForPosition(rng, naBucket, position)
		g.assignNonAlignedSlot(rng, ballots, present, posBucket)
	}

	return ballots
}

// naBucketMembersForPosition shuffles each team's members and takes
// the member at `position`, wrapping if a team has fewer than 3
// members — this produces the "one member per position bucket"
// distribution the original draw relies on.
func naBucketMembersForPosition(rng *rand.Rand, teams []TeamInfo, position int) []uuid.UUID {
	var out []uuid.UUID
	for _, t := range teams {
		if len(t.MemberIDs) == 0 {
			continue
		}
		shuffled := append([]uuid.UUID(nil), t.MemberIDs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		out = append(out, shuffled[position%len(shuffled)])
	}
	return out
}

// assignSlot solves a per-slot assignment: candidates are bucket
// members not yet placed in the round, cost is clash severity against
// everyone already present in that ballot, ties broken by
// randomization scale.
func (g *PreliminaryRoundGenerator) assignSlot(
	rng *rand.Rand,
	ballots []GeneratedBallot,
	present map[uuid.UUID]map[uuid.UUID]ParticipantKind,
	bucket []TeamInfo,
	assign func(*GeneratedBallot, uuid.UUID),
) map[int]TeamInfo {
	candidates := append([]TeamInfo(nil), bucket...)
	result := make(map[int]TeamInfo)

	order := make([]int, len(ballots))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, slot := range order {
		if len(candidates) == 0 {
			break
		}
		best, bestIdx := g.pickBest(rng, candidates, present[ballots[slot].Government])
		assign(&ballots[slot], best.UUID)
		result[slot] = best
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}
	return result
}

func (g *PreliminaryRoundGenerator) assignNonAlignedSlot(
	rng *rand.Rand,
	ballots []GeneratedBallot,
	present map[uuid.UUID]map[uuid.UUID]ParticipantKind,
	candidates []uuid.UUID,
) {
	cands := append([]uuid.UUID(nil), candidates...)

	order := make([]int, len(ballots))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, slot := range order {
		if len(cands) == 0 {
			break
		}
		bestIdx := 0
		bestCost := g.scoredCost(rng, cands[0], present[ballots[slot].Government])
		for i := 1; i < len(cands); i++ {
			c := g.scoredCost(rng, cands[i], present[ballots[slot].Government])
			if c < bestCost {
				bestCost = c
				bestIdx = i
			}
		}
		pick := cands[bestIdx]
		ballots[slot].NonAligned = append(ballots[slot].NonAligned, pick)
		present[ballots[slot].Government][pick] = KindNonAlignedSpeaker
		cands = append(cands[:bestIdx], cands[bestIdx+1:]...)
	}
}

func (g *PreliminaryRoundGenerator) pickBest(rng *rand.Rand, candidates []TeamInfo, present map[uuid.UUID]ParticipantKind) (TeamInfo, int) {
	type scored struct {
		t    TeamInfo
		idx  int
		cost float64
	}
	scoredList := make([]scored, len(candidates))
	for i, t := range candidates {
		cost := 0.0
		for _, mem := range t.MemberIDs {
			cost += g.Evaluator.CandidateCost(mem, KindTeamMember, present)
		}
		cost += rng.Float64() * g.RandomizationScale * 100
		scoredList[i] = scored{t: t, idx: i, cost: cost}
	}
	sort.SliceStable(scoredList, func(i, j int) bool { return scoredList[i].cost < scoredList[j].cost })
	return scoredList[0].t, scoredList[0].idx
}

func (g *PreliminaryRoundGenerator) scoredCost(rng *rand.Rand, candidate uuid.UUID, present map[uuid.UUID]ParticipantKind) float64 {
	return g.Evaluator.CandidateCost(candidate, KindNonAlignedSpeaker, present) + rng.Float64()*g.RandomizationScale*100
}
