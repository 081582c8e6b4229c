// Package draw implements the preliminary and fold draw-generation
// algorithms: assigning teams, non-aligned speakers and sides to
// debates while steering away from clashes and rematches.
package draw

import (
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// ParticipantKind discriminates how a participant counts towards clash
// severity factors (team members are scored as "team", not
// "speaker", when seated with their own team).
type ParticipantKind int

const (
	KindAdjudicator ParticipantKind = iota
	KindTeamMember
	KindNonAlignedSpeaker
)

// EvaluatorConfig blends declared clash severities and rematch
// penalties, mirroring the teacher-adjacent Rust original's
// DrawEvaluatorConfig defaults.
type EvaluatorConfig struct {
	AdjAdjClashFactor         float64
	AdjTeamClashFactor        float64
	AdjSpeakerClashFactor     float64
	TeamTeamClashFactor       float64
	TeamSpeakerClashFactor    float64
	SpeakerSpeakerClashFactor float64

	AdjAdjRepeatSeverity        int
	AdjTeamRepeatSeverity       int
	AdjNonAlignedRepeatSeverity int
	TeamTeamRepeatSeverity      int
	TeamSpeakerRepeatSeverity   int
	NonAlignedRepeatSeverity    int
}

// DefaultEvaluatorConfig matches the original system's tuned defaults.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		AdjAdjClashFactor:         0.3,
		AdjTeamClashFactor:        1.0,
		AdjSpeakerClashFactor:     0.5,
		TeamTeamClashFactor:       0.2,
		TeamSpeakerClashFactor:    0.1,
		SpeakerSpeakerClashFactor: 0.1,

		AdjAdjRepeatSeverity:        40,
		AdjTeamRepeatSeverity:       40,
		AdjNonAlignedRepeatSeverity: 40,
		TeamTeamRepeatSeverity:      10,
		TeamSpeakerRepeatSeverity:   10,
		NonAlignedRepeatSeverity:    10,
	}
}

// pairKey is an order-independent key for a participant pair.
type pairKey struct{ a, b uuid.UUID }

func newPairKey(a, b uuid.UUID) pairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pairKey{a, b}
}

// ClashMap holds effective declared clash severity between
// participants (max over both directions) plus dynamically
// accumulated repeat-encounter severity added as rounds are drawn.
type ClashMap struct {
	declared map[pairKey]int
	dynamic  map[pairKey]int
}

// NewClashMap builds a ClashMap from declared ParticipantClash rows.
// Effective severity between a pair is the max over declarations in
// both directions.
func NewClashMap(clashes []*entities.ParticipantClash) *ClashMap {
	m := &ClashMap{declared: make(map[pairKey]int), dynamic: make(map[pairKey]int)}
	for _, c := range clashes {
		k := newPairKey(c.DeclaringParticipantID, c.TargetParticipantID)
		if c.ClashSeverity > m.declared[k] {
			m.declared[k] = c.ClashSeverity
		}
	}
	return m
}

// Severity returns the combined declared+dynamic severity between a
// and b.
func (m *ClashMap) Severity(a, b uuid.UUID) int {
	if a == b {
		return 0
	}
	k := newPairKey(a, b)
	return m.declared[k] + m.dynamic[k]
}

// AddDynamicClash accumulates a repeat-encounter penalty between a and
// b, used after a round is drawn so subsequent rounds avoid rematches.
func (m *ClashMap) AddDynamicClash(a, b uuid.UUID, severity int) {
	if a == b {
		return
	}
	m.dynamic[newPairKey(a, b)] += severity
}

// AddDynamicClashesFromBallot walks one drawn ballot and records
// rematch penalties for every pair of participants that ended up in
// the debate together, using the kind-appropriate repeat severities.
func (m *ClashMap) AddDynamicClashesFromBallot(cfg EvaluatorConfig, ballot DrawnBallot) {
	// Team vs team (opposing sides facing off again).
	if ballot.Gov != uuid.Nil && ballot.Opp != uuid.Nil {
		m.AddDynamicClash(ballot.Gov, ballot.Opp, cfg.TeamTeamRepeatSeverity)
	}

	// Adjudicators repeating with each other.
	for i := 0; i < len(ballot.Adjudicators); i++ {
		for j := i + 1; j < len(ballot.Adjudicators); j++ {
			m.AddDynamicClash(ballot.Adjudicators[i], ballot.Adjudicators[j], cfg.AdjAdjRepeatSeverity)
		}
	}

	// Adjudicators repeating with the teams they judge.
	for _, adj := range ballot.Adjudicators {
		if ballot.Gov != uuid.Nil {
			m.AddDynamicClash(adj, ballot.Gov, cfg.AdjTeamRepeatSeverity)
		}
		if ballot.Opp != uuid.Nil {
			m.AddDynamicClash(adj, ballot.Opp, cfg.AdjTeamRepeatSeverity)
		}
		for _, na := range ballot.NonAligned {
			m.AddDynamicClash(adj, na, cfg.AdjNonAlignedRepeatSeverity)
		}
	}

	// Non-aligned speakers repeating with each other and with teams.
	for i := 0; i < len(ballot.NonAligned); i++ {
		for j := i + 1; j < len(ballot.NonAligned); j++ {
			m.AddDynamicClash(ballot.NonAligned[i], ballot.NonAligned[j], cfg.NonAlignedRepeatSeverity)
		}
		if ballot.Gov != uuid.Nil {
			m.AddDynamicClash(ballot.NonAligned[i], ballot.Gov, cfg.TeamSpeakerRepeatSeverity)
		}
		if ballot.Opp != uuid.Nil {
			m.AddDynamicClash(ballot.NonAligned[i], ballot.Opp, cfg.TeamSpeakerRepeatSeverity)
		}
	}
}

// DrawnBallot is the minimal shape AddDynamicClashesFromBallot and the
// draw algorithms need while a round is under construction, before it
// is turned into real entities.
type DrawnBallot struct {
	Gov          uuid.UUID
	Opp          uuid.UUID
	Adjudicators []uuid.UUID
	NonAligned   []uuid.UUID
}

// Evaluator scores candidate slot assignments by clash severity,
// blended by the factor appropriate to the pair of participant kinds
// involved.
type Evaluator struct {
	Config   EvaluatorConfig
	ClashMap *ClashMap
}

func NewEvaluator(cfg EvaluatorConfig, clashes []*entities.ParticipantClash) *Evaluator {
	return &Evaluator{Config: cfg, ClashMap: NewClashMap(clashes)}
}

func (e *Evaluator) factorFor(a, b ParticipantKind) float64 {
	switch {
	case a == KindAdjudicator && b == KindAdjudicator:
		return e.Config.AdjAdjClashFactor
	case (a == KindAdjudicator && b == KindTeamMember) || (a == KindTeamMember && b == KindAdjudicator):
		return e.Config.AdjTeamClashFactor
	case (a == KindAdjudicator && b == KindNonAlignedSpeaker) || (a == KindNonAlignedSpeaker && b == KindAdjudicator):
		return e.Config.AdjSpeakerClashFactor
	case a == KindTeamMember && b == KindTeamMember:
		return e.Config.TeamTeamClashFactor
	case (a == KindTeamMember && b == KindNonAlignedSpeaker) || (a == KindNonAlignedSpeaker && b == KindTeamMember):
		return e.Config.TeamSpeakerClashFactor
	default:
		return e.Config.SpeakerSpeakerClashFactor
	}
}

// PairCost returns the weighted clash cost of seating a and b (of the
// given kinds) together.
func (e *Evaluator) PairCost(a uuid.UUID, aKind ParticipantKind, b uuid.UUID, bKind ParticipantKind) float64 {
	return float64(e.ClashMap.Severity(a, b)) * e.factorFor(aKind, bKind)
}

// CandidateCost sums the pairwise cost of adding candidate (of kind
// candidateKind) against every participant already present, each
// tagged with its own kind.
func (e *Evaluator) CandidateCost(candidate uuid.UUID, candidateKind ParticipantKind, present map[uuid.UUID]ParticipantKind) float64 {
	total := 0.0
	ids := make([]uuid.UUID, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		total += e.PairCost(candidate, candidateKind, id, present[id])
	}
	return total
}
