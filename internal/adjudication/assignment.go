package adjudication

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"tournament-engine/internal/draw"
	"tournament-engine/internal/entities"
)

// AdjudicatorInfo is the subset of a Participant's adjudicator role the
// assignment engine scores against.
type AdjudicatorInfo struct {
	ID         uuid.UUID
	ChairSkill int
	PanelSkill int
}

// DebateInfo is one debate's current (possibly partial) adjudicator
// panel, along with the clash-relevant participants the draw produced.
type DebateInfo struct {
	RoundID    uuid.UUID
	DebateIdx  int
	Chair      *uuid.UUID
	Wings      []uuid.UUID
	Government uuid.UUID
	Opposition uuid.UUID
	NonAligned []uuid.UUID
	GovMembers []uuid.UUID
	OppMembers []uuid.UUID
}

// OptimizationOptions weighs feedback/moderation skill against clash
// cost. Defaults mirror the tuned values the draw engine itself ships
// with: clash avoidance dominates, skill is a secondary tiebreak.
type OptimizationOptions struct {
	FeedbackWeight     float64
	ModerationWeight   float64
	DiscussionWeight   float64
	HardClashThreshold int
}

func DefaultOptimizationOptions() OptimizationOptions {
	return OptimizationOptions{
		FeedbackWeight:     1.0,
		ModerationWeight:   1.0,
		DiscussionWeight:   1.0,
		HardClashThreshold: 75,
	}
}

// RoundInfo is one round's debates plus whether it is a silent round
// (silent rounds skip the feedback-skill cost term since chairs are
// not expected to have accumulated feedback yet).
type RoundInfo struct {
	ID       uuid.UUID
	IsSilent bool
	Debates  []*DebateInfo
}

// AssignmentState runs the two-phase (chairs, then wings) min-cost-flow
// adjudicator assignment across a set of rounds, grounded on the
// original draw engine's chair-frequency-balanced flow construction.
type AssignmentState struct {
	Options     OptimizationOptions
	Rounds      []RoundInfo
	adjInfo     map[uuid.UUID]AdjudicatorInfo
	evaluator   *draw.Evaluator
	unavailable map[uuid.UUID]map[uuid.UUID]bool // adjudicator -> round -> unavailable
}

// NewAssignmentState prepares assignment over rounds, given each
// adjudicator's skill info, per-adjudicator unavailable round IDs, and
// the clash evaluator already primed with the tournament's declared
// and dynamic clashes.
func NewAssignmentState(opts OptimizationOptions, rounds []RoundInfo, adjudicators []*entities.Participant, evaluator *draw.Evaluator) *AssignmentState {
	adjInfo := make(map[uuid.UUID]AdjudicatorInfo)
	unavailable := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, p := range adjudicators {
		if !p.IsAdjudicator() {
			continue
		}
		adjInfo[p.UUID] = AdjudicatorInfo{
			ID:         p.UUID,
			ChairSkill: p.Adjudicator.ChairSkill,
			PanelSkill: p.Adjudicator.PanelSkill,
		}
		for _, r := range rounds {
			if p.IsUnavailableForRound(r.ID) {
				if unavailable[p.UUID] == nil {
					unavailable[p.UUID] = make(map[uuid.UUID]bool)
				}
				unavailable[p.UUID][r.ID] = true
			}
		}
	}
	return &AssignmentState{
		Options:     opts,
		Rounds:      rounds,
		adjInfo:     adjInfo,
		evaluator:   evaluator,
		unavailable: unavailable,
	}
}

// clashCost sums the evaluator's pairwise cost between adjudicator and
// every participant already present in the debate (as a chair
// candidate would join the wings, this models them as a tentative
// wing for cost purposes). Returns ok=false if a hard clash (severity
// at or above HardClashThreshold) makes this assignment inadmissible.
func (s *AssignmentState) clashCost(adj uuid.UUID, debate *DebateInfo) (cost float64, ok bool) {
	present := make(map[uuid.UUID]draw.ParticipantKind)
	for _, m := range debate.GovMembers {
		present[m] = draw.KindTeamMember
	}
	for _, m := range debate.OppMembers {
		present[m] = draw.KindTeamMember
	}
	for _, na := range debate.NonAligned {
		present[na] = draw.KindNonAlignedSpeaker
	}
	if debate.Chair != nil {
		present[*debate.Chair] = draw.KindAdjudicator
	}
	for _, w := range debate.Wings {
		present[w] = draw.KindAdjudicator
	}

	for other, kind := range present {
		if float64(s.evaluator.ClashMap.Severity(adj, other))*severityScaleFor(kind) >= float64(s.Options.HardClashThreshold) {
			return 0, false
		}
	}
	return s.evaluator.CandidateCost(adj, draw.KindAdjudicator, present) * 100, true
}

func severityScaleFor(kind draw.ParticipantKind) float64 {
	// Hard-clash admissibility is judged against raw declared/dynamic
	// severity, not the evaluator's cost-weighted contribution, so this
	// always returns 1; kept as a seam in case future tuning wants to
	// scale the threshold check per participant kind.
	_ = kind
	return 1
}

// chairCost is the clash cost adjusted by the adjudicator's
// feedback/moderation skill: a more senior chair is cheaper to assign.
func (s *AssignmentState) chairCost(adj uuid.UUID, debate *DebateInfo, isSilentRound bool) (int, bool) {
	info := s.adjInfo[adj]
	cost, ok := s.clashCost(adj, debate)
	if !ok {
		return 0, false
	}
	rounded := int(cost)
	if !isSilentRound {
		rounded -= round(float64(info.ChairSkill) * s.Options.FeedbackWeight)
	}
	rounded -= round(float64(info.ChairSkill) * s.Options.ModerationWeight)
	return rounded, true
}

// wingCost is the clash cost minus two skill terms: the wing's chair
// skill above the seated chair's panel skill (scaled by
// DiscussionWeight), and the distance between the wing's panel skill
// and the average panel skill of the wings already seated (0 when
// there are none). A larger distance makes a wing cheaper, so the
// first wing of a panel favours the highest panel skill.
func (s *AssignmentState) wingCost(adj uuid.UUID, debate *DebateInfo) (int, bool) {
	info := s.adjInfo[adj]
	cost, ok := s.clashCost(adj, debate)
	if !ok {
		return 0, false
	}
	rounded := int(cost)

	avgWingSkill := 0
	if len(debate.Wings) > 0 {
		sum := 0
		for _, w := range debate.Wings {
			sum += s.adjInfo[w].PanelSkill
		}
		avgWingSkill = sum / len(debate.Wings)
	}

	if debate.Chair != nil {
		chairInfo := s.adjInfo[*debate.Chair]
		rounded -= round(float64(info.ChairSkill-chairInfo.PanelSkill) * s.Options.DiscussionWeight)
	}
	rounded -= abs(info.PanelSkill - avgWingSkill)
	return rounded, true
}

func round(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// chairFlowNode enumerates the flow-graph node kinds used in the chair
// phase: a source, one frequency-balancing node per (adjudicator,
// round-slack) pair, one node per adjudicator, one per (adjudicator,
// round) assignable slot, one per debate needing a chair, and a sink.
type chairFlowNode struct {
	kind string // "freq", "adj", "role", "debate"
	adj  uuid.UUID
	n    int // round-slack level or round index
	d    int // debate index
}

// AssignChairs fills every debate's empty Chair slot across all Rounds
// in one combined min-cost flow, spreading chair duty across rounds by
// penalizing the k-th chair assignment to the same adjudicator with an
// increasing cost tier (10 per extra assignment, matching the
// chair-frequency nodes' staggered source cost).
func (s *AssignmentState) AssignChairs() {
	type pendingDebate struct {
		roundIdx int
		debate   *DebateInfo
	}
	var pending []pendingDebate
	for ri, r := range s.Rounds {
		for _, d := range r.Debates {
			if d.Chair == nil {
				pending = append(pending, pendingDebate{roundIdx: ri, debate: d})
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	adjIDs := make([]uuid.UUID, 0, len(s.adjInfo))
	for id := range s.adjInfo {
		adjIDs = append(adjIDs, id)
	}
	sort.Slice(adjIDs, func(i, j int) bool { return adjIDs[i].String() < adjIDs[j].String() })

	nodeIndex := map[chairFlowNode]int{}
	nextID := 2 // 0=source, 1=sink
	nodeID := func(n chairFlowNode) int {
		if id, ok := nodeIndex[n]; ok {
			return id
		}
		id := nextID
		nextID++
		nodeIndex[n] = id
		return id
	}
	const source, sink = 0, 1

	// Reserve node IDs up front so the graph can be sized once.
	for _, adj := range adjIDs {
		for i := 0; i < len(s.Rounds); i++ {
			nodeID(chairFlowNode{kind: "freq", adj: adj, n: i})
		}
		nodeID(chairFlowNode{kind: "adj", adj: adj})
		for ri := range s.Rounds {
			nodeID(chairFlowNode{kind: "role", adj: adj, n: ri})
		}
	}
	for _, pd := range pending {
		nodeID(chairFlowNode{kind: "debate", n: pd.roundIdx, d: pd.debate.DebateIdx})
	}

	g := newMCMFGraph(nextID)

	for _, adj := range adjIDs {
		for i := 0; i < len(s.Rounds); i++ {
			freq := nodeID(chairFlowNode{kind: "freq", adj: adj, n: i})
			g.addEdge(source, freq, 1, float64(i*10))
			g.addEdge(freq, nodeID(chairFlowNode{kind: "adj", adj: adj}), 1, 0)
		}
	}

	alreadyAssigned := make(map[uuid.UUID]map[int]bool)
	for ri, r := range s.Rounds {
		for _, d := range r.Debates {
			if d.Chair != nil {
				if alreadyAssigned[*d.Chair] == nil {
					alreadyAssigned[*d.Chair] = make(map[int]bool)
				}
				alreadyAssigned[*d.Chair][ri] = true
			}
		}
	}
	for _, w := range s.allWingAssignments() {
		if alreadyAssigned[w.adj] == nil {
			alreadyAssigned[w.adj] = make(map[int]bool)
		}
		alreadyAssigned[w.adj][w.round] = true
	}

	for _, adj := range adjIDs {
		for ri := range s.Rounds {
			if alreadyAssigned[adj][ri] || s.unavailable[adj][s.Rounds[ri].ID] {
				continue
			}
			g.addEdge(nodeID(chairFlowNode{kind: "adj", adj: adj}), nodeID(chairFlowNode{kind: "role", adj: adj, n: ri}), 1, 0)
		}
	}

	type edgeRef struct {
		idx      int
		adj      uuid.UUID
		roundIdx int
		debate   *DebateInfo
	}
	var debateEdges []edgeRef
	for _, pd := range pending {
		isSilent := s.Rounds[pd.roundIdx].IsSilent
		for _, adj := range adjIDs {
			if alreadyAssigned[adj][pd.roundIdx] || s.unavailable[adj][s.Rounds[pd.roundIdx].ID] {
				continue
			}
			cost, ok := s.chairCost(adj, pd.debate, isSilent)
			if !ok {
				continue
			}
			idx := g.addEdge(
				nodeID(chairFlowNode{kind: "role", adj: adj, n: pd.roundIdx}),
				nodeID(chairFlowNode{kind: "debate", n: pd.roundIdx, d: pd.debate.DebateIdx}),
				1, float64(cost),
			)
			debateEdges = append(debateEdges, edgeRef{idx: idx, adj: adj, roundIdx: pd.roundIdx, debate: pd.debate})
		}
	}

	for _, pd := range pending {
		g.addEdge(nodeID(chairFlowNode{kind: "debate", n: pd.roundIdx, d: pd.debate.DebateIdx}), sink, 1, 0)
	}

	g.minCostMaxFlow(source, sink)

	for _, e := range debateEdges {
		if g.flowOf(e.idx) > 0 {
			adj := e.adj
			e.debate.Chair = &adj
		}
	}
}

type wingAssignment struct {
	adj   uuid.UUID
	round int
}

func (s *AssignmentState) allWingAssignments() []wingAssignment {
	var out []wingAssignment
	for ri, r := range s.Rounds {
		for _, d := range r.Debates {
			for _, w := range d.Wings {
				out = append(out, wingAssignment{adj: w, round: ri})
			}
		}
	}
	return out
}

// AssignWings fills wing panels round by round. Within a round it
// repeatedly runs one min-cost flow over the still-unassigned
// adjudicators against the debates currently shortest on wings, so
// panel sizes grow in lockstep rather than one debate absorbing every
// available adjudicator before another gets any.
func (s *AssignmentState) AssignWings() {
	for ri := range s.Rounds {
		s.assignWingsForRound(ri)
	}
}

func (s *AssignmentState) assignWingsForRound(roundIdx int) {
	assignedThisRound := make(map[uuid.UUID]bool)
	for _, d := range s.Rounds[roundIdx].Debates {
		if d.Chair != nil {
			assignedThisRound[*d.Chair] = true
		}
		for _, w := range d.Wings {
			assignedThisRound[w] = true
		}
	}

	previousUnassignedCount := -1
	for {
		var unassigned []uuid.UUID
		for adj := range s.adjInfo {
			if !assignedThisRound[adj] && !s.unavailable[adj][s.Rounds[roundIdx].ID] {
				unassigned = append(unassigned, adj)
			}
		}
		if len(unassigned) == 0 || len(unassigned) == previousUnassignedCount {
			return
		}
		previousUnassignedCount = len(unassigned)
		sort.Slice(unassigned, func(i, j int) bool { return unassigned[i].String() < unassigned[j].String() })

		minWings := -1
		for _, d := range s.Rounds[roundIdx].Debates {
			if minWings == -1 || len(d.Wings) < minWings {
				minWings = len(d.Wings)
			}
		}
		var target []*DebateInfo
		for _, d := range s.Rounds[roundIdx].Debates {
			if len(d.Wings) == minWings {
				target = append(target, d)
			}
		}
		if len(target) == 0 {
			return
		}

		nodeIndex := map[string]int{}
		nextID := 2
		nodeID := func(k string) int {
			if id, ok := nodeIndex[k]; ok {
				return id
			}
			id := nextID
			nextID++
			nodeIndex[k] = id
			return id
		}
		const source, sink = 0, 1

		for _, adj := range unassigned {
			nodeID("adj:" + adj.String())
		}
		for _, d := range target {
			nodeID("debate:" + strconv.Itoa(d.DebateIdx))
		}

		g := newMCMFGraph(nextID)
		type edgeRef struct {
			idx    int
			adj    uuid.UUID
			debate *DebateInfo
		}
		var edges []edgeRef

		for _, adj := range unassigned {
			g.addEdge(source, nodeID("adj:"+adj.String()), 1, 0)
			for _, d := range target {
				cost, ok := s.wingCost(adj, d)
				if !ok {
					continue
				}
				idx := g.addEdge(nodeID("adj:"+adj.String()), nodeID("debate:"+strconv.Itoa(d.DebateIdx)), 1, float64(cost))
				edges = append(edges, edgeRef{idx: idx, adj: adj, debate: d})
			}
		}
		for _, d := range target {
			g.addEdge(nodeID("debate:"+strconv.Itoa(d.DebateIdx)), sink, 1, 0)
		}

		g.minCostMaxFlow(source, sink)

		anyAssigned := false
		for _, e := range edges {
			if g.flowOf(e.idx) > 0 {
				e.debate.Wings = append(e.debate.Wings, e.adj)
				assignedThisRound[e.adj] = true
				anyAssigned = true
			}
		}
		if !anyAssigned {
			return
		}
	}
}

// AssignAdjudicators runs the full two-phase assignment: chairs first,
// across all rounds at once to balance chair frequency, then wings
// round by round.
func (s *AssignmentState) AssignAdjudicators() {
	s.AssignChairs()
	s.AssignWings()
}
