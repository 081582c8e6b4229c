// Package plan executes tournament plan nodes: a Round node runs the
// draw and adjudicator-assignment engines for the rounds it owns, a
// Break node runs the break engine. Either way the result is staged
// into one EntityGroup, so scheduler output flows through the same
// save-and-log pipe as every other mutation.
package plan

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/adjudication"
	"tournament-engine/internal/breaks"
	"tournament-engine/internal/changelog"
	"tournament-engine/internal/draw"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/tab"
)

// Executor runs plan nodes against a store. Seed feeds the draw
// generators so a node execution is reproducible when replayed with
// the same inputs.
type Executor struct {
	Store           entities.Store
	EvaluatorConfig draw.EvaluatorConfig
	Options         adjudication.OptimizationOptions
	Seed            int64
}

func NewExecutor(store entities.Store, seed int64) *Executor {
	return &Executor{
		Store:           store,
		EvaluatorConfig: draw.DefaultEvaluatorConfig(),
		Options:         adjudication.DefaultOptimizationOptions(),
		Seed:            seed,
	}
}

// ExecutePlanNode runs the node's configured computation and returns
// the EntityGroup holding everything it produced. Nothing is saved
// here; the caller commits the group through SaveAllAndLog.
func (e *Executor) ExecutePlanNode(ctx context.Context, nodeID uuid.UUID) (*changelog.EntityGroup, error) {
	ne, err := e.Store.Get(ctx, entities.TypePlanNode, nodeID)
	if err != nil {
		return nil, err
	}
	node := ne.(*entities.TournamentPlanNode)

	pop, err := e.loadPopulation(ctx, node.TournamentID)
	if err != nil {
		return nil, err
	}

	switch node.Kind {
	case entities.PlanNodeRound:
		return e.executeRoundNode(ctx, node, pop)
	case entities.PlanNodeBreak:
		return e.executeBreakNode(ctx, node, pop)
	default:
		return nil, entities.IntegrityViolation("plan node %s has unknown kind %q", node.UUID, node.Kind)
	}
}

// population is the tournament-wide state a node execution reads.
type population struct {
	tournamentID uuid.UUID
	teams        []*entities.Team
	participants []*entities.Participant
	clashes      []*entities.ParticipantClash
	rounds       []*entities.TournamentRound
	debates      []*entities.TournamentDebate
	nodes        []*entities.TournamentPlanNode
	edges        []*entities.TournamentPlanEdge
}

func (e *Executor) loadPopulation(ctx context.Context, tid uuid.UUID) (*population, error) {
	pop := &population{tournamentID: tid}

	load := func(t entities.EntityType, into func(entities.Entity)) error {
		all, err := e.Store.GetAllInTournament(ctx, t, tid)
		if err != nil {
			return err
		}
		for _, ent := range all {
			into(ent)
		}
		return nil
	}

	if err := load(entities.TypeTeam, func(ent entities.Entity) { pop.teams = append(pop.teams, ent.(*entities.Team)) }); err != nil {
		return nil, err
	}
	if err := load(entities.TypeParticipant, func(ent entities.Entity) {
		pop.participants = append(pop.participants, ent.(*entities.Participant))
	}); err != nil {
		return nil, err
	}
	if err := load(entities.TypeParticipantClash, func(ent entities.Entity) {
		pop.clashes = append(pop.clashes, ent.(*entities.ParticipantClash))
	}); err != nil {
		return nil, err
	}
	if err := load(entities.TypeRound, func(ent entities.Entity) {
		pop.rounds = append(pop.rounds, ent.(*entities.TournamentRound))
	}); err != nil {
		return nil, err
	}
	if err := load(entities.TypeDebate, func(ent entities.Entity) {
		pop.debates = append(pop.debates, ent.(*entities.TournamentDebate))
	}); err != nil {
		return nil, err
	}
	if err := load(entities.TypePlanNode, func(ent entities.Entity) {
		pop.nodes = append(pop.nodes, ent.(*entities.TournamentPlanNode))
	}); err != nil {
		return nil, err
	}
	if err := load(entities.TypePlanEdge, func(ent entities.Entity) {
		pop.edges = append(pop.edges, ent.(*entities.TournamentPlanEdge))
	}); err != nil {
		return nil, err
	}

	sort.SliceStable(pop.rounds, func(i, j int) bool { return pop.rounds[i].Index < pop.rounds[j].Index })
	return pop, nil
}

func (p *population) teamMembers() map[uuid.UUID][]uuid.UUID {
	members := make(map[uuid.UUID][]uuid.UUID)
	for _, part := range p.participants {
		if part.RoleKind == entities.RoleSpeaker && part.Speaker != nil && part.Speaker.TeamID != nil {
			members[*part.Speaker.TeamID] = append(members[*part.Speaker.TeamID], part.UUID)
		}
	}
	return members
}

func (p *population) adjudicators() []*entities.Participant {
	var out []*entities.Participant
	for _, part := range p.participants {
		if part.IsAdjudicator() {
			out = append(out, part)
		}
	}
	return out
}

// predecessorBreak finds the break computed by a Break node with an
// edge into nodeID, when one exists; round nodes downstream of a break
// draw from its advancing teams and speakers only.
func (e *Executor) predecessorBreak(ctx context.Context, pop *population, nodeID uuid.UUID) (*entities.TournamentBreak, error) {
	for _, edge := range pop.edges {
		if edge.TargetID != nodeID {
			continue
		}
		for _, n := range pop.nodes {
			if n.UUID == edge.SourceID && n.Kind == entities.PlanNodeBreak && n.BreakID != nil {
				be, err := e.Store.Get(ctx, entities.TypeBreak, *n.BreakID)
				if err != nil {
					return nil, err
				}
				return be.(*entities.TournamentBreak), nil
			}
		}
	}
	return nil, nil
}

// predecessorRoundNode finds the Round node with an edge into nodeID,
// used by break computations that examine the preceding round.
func (p *population) predecessorRoundNode(nodeID uuid.UUID) *entities.TournamentPlanNode {
	for _, edge := range p.edges {
		if edge.TargetID != nodeID {
			continue
		}
		for _, n := range p.nodes {
			if n.UUID == edge.SourceID && n.Kind == entities.PlanNodeRound {
				return n
			}
		}
	}
	return nil
}

func (e *Executor) executeRoundNode(ctx context.Context, node *entities.TournamentPlanNode, pop *population) (*changelog.EntityGroup, error) {
	if node.RoundConfig == nil {
		return nil, entities.IntegrityViolation("round plan node %s has no round config", node.UUID)
	}

	group := changelog.NewEntityGroup()

	rounds, created, err := e.ensureRounds(ctx, node, pop, group)
	if err != nil {
		return nil, err
	}

	owned := make(map[uuid.UUID]bool, len(rounds))
	for _, r := range rounds {
		owned[r.UUID] = true
	}
	for _, d := range pop.debates {
		if owned[d.RoundID] {
			return nil, entities.ScheduleInfeasible("RoundAlreadyDrawn", "round %s already has debates", d.RoundID)
		}
	}

	members := pop.teamMembers()
	drawTeams, nonAligned, err := e.drawPool(ctx, pop, node, members)
	if err != nil {
		return nil, err
	}

	evaluator := draw.NewEvaluator(e.EvaluatorConfig, pop.clashes)

	var generated []draw.GeneratedRound
	switch node.RoundConfig.DrawType {
	case entities.DrawPreliminary:
		gen := &draw.PreliminaryRoundGenerator{Evaluator: evaluator, RandomizationScale: 0.1, Seed: e.Seed}
		generated, err = gen.GenerateDrawForRounds(draw.RoundGenerationContext{Teams: drawTeams}, len(rounds))
		if err != nil {
			return nil, err
		}
	case entities.DrawFold:
		generated, err = e.generateFoldRounds(ctx, node, pop, drawTeams, nonAligned, len(rounds))
		if err != nil {
			return nil, err
		}
	default:
		return nil, entities.ScheduleInfeasible("UnknownDrawType", "round node %s names unsupported draw type %v", node.UUID, node.RoundConfig.DrawType)
	}

	assignRounds, ballots, err := e.realizeRounds(ctx, group, rounds, generated, members)
	if err != nil {
		return nil, err
	}

	state := adjudication.NewAssignmentState(e.Options, assignRounds, pop.adjudicators(), evaluator)
	state.AssignAdjudicators()
	if err := e.stageAssignedPanels(ctx, group, assignRounds, ballots); err != nil {
		return nil, err
	}

	if created {
		if err := group.Add(ctx, e.Store, node, false); err != nil {
			return nil, err
		}
	}
	return group, nil
}

// ensureRounds loads the node's rounds, creating and staging them when
// the node has not been executed before. New rounds index after the
// tournament's current maximum.
func (e *Executor) ensureRounds(ctx context.Context, node *entities.TournamentPlanNode, pop *population, group *changelog.EntityGroup) ([]*entities.TournamentRound, bool, error) {
	if len(node.RoundIDs) > 0 {
		rounds := make([]*entities.TournamentRound, 0, len(node.RoundIDs))
		for _, rid := range node.RoundIDs {
			re, err := e.Store.Get(ctx, entities.TypeRound, rid)
			if err != nil {
				return nil, false, err
			}
			rounds = append(rounds, re.(*entities.TournamentRound))
		}
		return rounds, false, nil
	}

	nextIndex := 0
	for _, r := range pop.rounds {
		if r.Index >= nextIndex {
			nextIndex = r.Index + 1
		}
	}

	n := node.RoundConfig.NumRounds
	if n <= 0 {
		return nil, false, entities.IntegrityViolation("round node %s configures %d rounds", node.UUID, n)
	}
	rounds := make([]*entities.TournamentRound, n)
	for i := 0; i < n; i++ {
		r := &entities.TournamentRound{
			UUID:         entities.NewUUID(),
			TournamentID: node.TournamentID,
			Index:        nextIndex + i,
		}
		dt := node.RoundConfig.DrawType
		r.DrawType = &dt
		rounds[i] = r
		node.RoundIDs = append(node.RoundIDs, r.UUID)
		if err := group.Add(ctx, e.Store, r, true); err != nil {
			return nil, false, err
		}
	}
	return rounds, true, nil
}

// drawPool resolves which teams and non-aligned speakers this node
// draws from: the predecessor break's advancers when the node follows
// a Break node, otherwise the whole tournament (with teamless speakers
// as the non-aligned pool).
func (e *Executor) drawPool(ctx context.Context, pop *population, node *entities.TournamentPlanNode, members map[uuid.UUID][]uuid.UUID) ([]draw.TeamInfo, []uuid.UUID, error) {
	brk, err := e.predecessorBreak(ctx, pop, node.UUID)
	if err != nil {
		return nil, nil, err
	}

	if brk != nil {
		teams := make([]draw.TeamInfo, 0, len(brk.BreakingTeams))
		for _, tid := range brk.BreakingTeams {
			teams = append(teams, draw.TeamInfo{UUID: tid, MemberIDs: members[tid]})
		}
		return teams, append([]uuid.UUID(nil), brk.BreakingSpeakers...), nil
	}

	teams := make([]draw.TeamInfo, 0, len(pop.teams))
	for _, t := range pop.teams {
		teams = append(teams, draw.TeamInfo{UUID: t.UUID, MemberIDs: members[t.UUID]})
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].UUID.String() < teams[j].UUID.String() })

	var nonAligned []uuid.UUID
	for _, p := range pop.participants {
		if p.RoleKind == entities.RoleSpeaker && (p.Speaker == nil || p.Speaker.TeamID == nil) {
			nonAligned = append(nonAligned, p.UUID)
		}
	}
	sort.Slice(nonAligned, func(i, j int) bool { return nonAligned[i].String() < nonAligned[j].String() })
	return teams, nonAligned, nil
}

func (e *Executor) generateFoldRounds(ctx context.Context, node *entities.TournamentPlanNode, pop *population, drawTeams []draw.TeamInfo, nonAligned []uuid.UUID, numRounds int) ([]draw.GeneratedRound, error) {
	cfg := draw.FoldDrawConfig{
		TeamFoldMethod:       draw.FoldPowerPaired,
		TeamAssignmentRule:   draw.AssignRandom,
		NonAlignedFoldMethod: draw.NonAlignedTabOrder,
		Seed:                 e.Seed,
	}
	if f := node.RoundConfig.Fold; f != nil {
		if f.TeamFoldMethod != "" {
			cfg.TeamFoldMethod = draw.TeamFoldMethod(f.TeamFoldMethod)
		}
		if f.TeamAssignmentRule != "" {
			cfg.TeamAssignmentRule = draw.TeamAssignmentRule(f.TeamAssignmentRule)
		}
		if f.NonAlignedFoldMethod != "" {
			cfg.NonAlignedFoldMethod = draw.NonAlignedFoldMethod(f.NonAlignedFoldMethod)
		}
	}

	standings, previous, err := e.currentStandings(ctx, pop)
	if err != nil {
		return nil, err
	}

	eligible := make(map[uuid.UUID]bool, len(drawTeams))
	memberOf := make(map[uuid.UUID]draw.TeamInfo, len(drawTeams))
	for _, t := range drawTeams {
		eligible[t.UUID] = true
		memberOf[t.UUID] = t
	}

	var ranked []draw.RankedTeam
	for _, s := range standings {
		if eligible[s.TeamID] {
			ranked = append(ranked, draw.RankedTeam{Team: memberOf[s.TeamID], Rank: s.Rank, Total: s.TotalScore})
		}
	}
	// Teams with no scored debates yet pair at the bottom of the fold.
	seen := make(map[uuid.UUID]bool, len(ranked))
	for _, r := range ranked {
		seen[r.Team.UUID] = true
	}
	for _, t := range drawTeams {
		if !seen[t.UUID] {
			ranked = append(ranked, draw.RankedTeam{Team: t, Rank: len(ranked)})
		}
	}

	gen := &draw.FoldDrawGenerator{Config: cfg}
	out := make([]draw.GeneratedRound, numRounds)
	for i := 0; i < numRounds; i++ {
		out[i] = gen.GenerateRound(ranked, previous, nonAligned)
		previous = rolesOfRound(out[i])
	}
	return out, nil
}

func rolesOfRound(r draw.GeneratedRound) draw.PreviousRoundRole {
	previous := make(draw.PreviousRoundRole)
	for _, b := range r.Ballots {
		previous.RecordGov(b.Government)
		previous.RecordOpp(b.Opposition)
	}
	return previous
}

// currentStandings aggregates the team tab from every scored ballot in
// the tournament, plus each team's role in the latest scored round.
func (e *Executor) currentStandings(ctx context.Context, pop *population) ([]tab.TeamTabEntry, draw.PreviousRoundRole, error) {
	roundOf := make(map[uuid.UUID]*entities.TournamentRound, len(pop.rounds))
	for _, r := range pop.rounds {
		roundOf[r.UUID] = r
	}

	var results []tab.DebateResult
	previous := make(draw.PreviousRoundRole)
	lastIndex := -1
	for _, d := range pop.debates {
		round := roundOf[d.RoundID]
		if round == nil || d.BallotID == uuid.Nil {
			continue
		}
		be, err := e.Store.Get(ctx, entities.TypeBallot, d.BallotID)
		if err != nil {
			if entities.AsKind(err, entities.KindNotFound) {
				continue
			}
			return nil, nil, err
		}
		ballot := be.(*entities.Ballot)
		results = append(results, reduceBallot(round.UUID, ballot))

		if round.Index > lastIndex {
			lastIndex = round.Index
			previous = make(draw.PreviousRoundRole)
		}
		if round.Index == lastIndex {
			if ballot.Government.TeamID != nil {
				previous.RecordGov(*ballot.Government.TeamID)
			}
			if ballot.Opposition.TeamID != nil {
				previous.RecordOpp(*ballot.Opposition.TeamID)
			}
		}
	}

	speakerTeam := make(tab.SpeakerTeam)
	for _, p := range pop.participants {
		if p.RoleKind == entities.RoleSpeaker && p.Speaker != nil && p.Speaker.TeamID != nil {
			speakerTeam[p.UUID] = *p.Speaker.TeamID
		}
	}

	teamTab, _ := tab.Aggregate(results, speakerTeam)
	if lastIndex == -1 {
		previous = nil
	}
	return teamTab, previous, nil
}

func reduceBallot(roundID uuid.UUID, b *entities.Ballot) tab.DebateResult {
	dr := tab.DebateResult{RoundID: roundID}
	if b.Government.TeamID != nil {
		dr.GovTeamID = *b.Government.TeamID
		if s, ok := meanScore(b.Government.Scores); ok {
			dr.GovTeamScore = &s
		}
	}
	if b.Opposition.TeamID != nil {
		dr.OppTeamID = *b.Opposition.TeamID
		if s, ok := meanScore(b.Opposition.Scores); ok {
			dr.OppTeamScore = &s
		}
	}
	for _, sp := range b.Speeches {
		if sp.SpeakerID == nil {
			continue
		}
		score, _ := meanScore(sp.Scores)
		dr.Speeches = append(dr.Speeches, tab.Speech{
			SpeakerID: *sp.SpeakerID,
			Role:      sp.Role,
			Position:  sp.Position,
			IsOptOut:  sp.IsOptOut,
			Score:     score,
		})
	}
	return dr
}

func meanScore(scores map[uuid.UUID]int) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	return float64(total) / float64(len(scores)), true
}

// realizeRounds turns the generated pairings into staged Debate rows
// and pending Ballot rows, returning the shape the adjudicator
// assignment runs over plus each debate's ballot (staged only after
// panels are assigned, so a ballot is written exactly once).
func (e *Executor) realizeRounds(ctx context.Context, group *changelog.EntityGroup, rounds []*entities.TournamentRound, generated []draw.GeneratedRound, members map[uuid.UUID][]uuid.UUID) ([]adjudication.RoundInfo, map[*adjudication.DebateInfo]*entities.Ballot, error) {
	if len(generated) != len(rounds) {
		return nil, nil, entities.IntegrityViolation("generated %d rounds for %d round rows", len(generated), len(rounds))
	}

	ballots := make(map[*adjudication.DebateInfo]*entities.Ballot)
	out := make([]adjudication.RoundInfo, len(rounds))
	for i, round := range rounds {
		info := adjudication.RoundInfo{ID: round.UUID, IsSilent: round.IsSilent}
		for idx, gb := range generated[i].Ballots {
			ballot := &entities.Ballot{
				UUID:       entities.NewUUID(),
				Government: entities.BallotSide{Scores: map[uuid.UUID]int{}},
				Opposition: entities.BallotSide{Scores: map[uuid.UUID]int{}},
			}
			if gb.Government != uuid.Nil {
				gov := gb.Government
				ballot.Government.TeamID = &gov
			}
			if gb.Opposition != uuid.Nil {
				opp := gb.Opposition
				ballot.Opposition.TeamID = &opp
			}
			for pos, speaker := range gb.NonAligned {
				sp := speaker
				ballot.Speeches = append(ballot.Speeches, entities.Speech{
					SpeakerID: &sp,
					Role:      entities.SpeechNonAligned,
					Position:  pos % 3,
					Scores:    map[uuid.UUID]int{},
				})
			}

			debate := &entities.TournamentDebate{
				UUID:     entities.NewUUID(),
				RoundID:  round.UUID,
				Index:    idx,
				BallotID: ballot.UUID,
			}
			if err := group.Add(ctx, e.Store, debate, true); err != nil {
				return nil, nil, err
			}

			di := &adjudication.DebateInfo{
				RoundID:    round.UUID,
				DebateIdx:  idx,
				Government: gb.Government,
				Opposition: gb.Opposition,
				NonAligned: gb.NonAligned,
				GovMembers: members[gb.Government],
				OppMembers: members[gb.Opposition],
			}
			info.Debates = append(info.Debates, di)
			ballots[di] = ballot
		}
		out[i] = info
	}
	return out, ballots, nil
}

// stageAssignedPanels copies the flow solution's chair/wings onto each
// pending ballot and stages it.
func (e *Executor) stageAssignedPanels(ctx context.Context, group *changelog.EntityGroup, rounds []adjudication.RoundInfo, ballots map[*adjudication.DebateInfo]*entities.Ballot) error {
	for _, r := range rounds {
		for _, d := range r.Debates {
			ballot := ballots[d]
			if ballot == nil {
				continue
			}

			ballot.Adjudicators = nil
			if d.Chair != nil {
				ballot.Adjudicators = append(ballot.Adjudicators, *d.Chair)
			}
			ballot.Adjudicators = append(ballot.Adjudicators, d.Wings...)

			if err := group.Add(ctx, e.Store, ballot, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) executeBreakNode(ctx context.Context, node *entities.TournamentPlanNode, pop *population) (*changelog.EntityGroup, error) {
	if node.BreakConfig == nil {
		return nil, entities.IntegrityViolation("break plan node %s has no break config", node.UUID)
	}

	teamTab, _, err := e.currentStandings(ctx, pop)
	if err != nil {
		return nil, err
	}
	speakerTab, err := e.speakerStandings(ctx, pop)
	if err != nil {
		return nil, err
	}

	in := breaks.Input{
		TournamentID: node.TournamentID,
		Config:       *node.BreakConfig,
	}
	for _, t := range teamTab {
		in.TeamTab = append(in.TeamTab, breaks.TeamStanding{TeamID: t.TeamID, Rank: t.Rank, Total: t.TotalScore})
	}
	in.SpeakerTab = speakerTab

	if prev := pop.predecessorRoundNode(node.UUID); prev != nil && len(prev.RoundIDs) > 0 {
		lastRound := prev.RoundIDs[len(prev.RoundIDs)-1]
		in.KnockoutResults, in.PlayedAligned, err = e.roundResults(ctx, pop, lastRound)
		if err != nil {
			return nil, err
		}
	}

	brk, err := breaks.Compute(in)
	if err != nil {
		return nil, err
	}

	group := changelog.NewEntityGroup()
	if err := group.Add(ctx, e.Store, brk, true); err != nil {
		return nil, err
	}
	node.BreakID = &brk.UUID
	if err := group.Add(ctx, e.Store, node, false); err != nil {
		return nil, err
	}
	return group, nil
}

func (e *Executor) speakerStandings(ctx context.Context, pop *population) ([]breaks.SpeakerStanding, error) {
	roundOf := make(map[uuid.UUID]*entities.TournamentRound, len(pop.rounds))
	for _, r := range pop.rounds {
		roundOf[r.UUID] = r
	}
	var results []tab.DebateResult
	for _, d := range pop.debates {
		if roundOf[d.RoundID] == nil || d.BallotID == uuid.Nil {
			continue
		}
		be, err := e.Store.Get(ctx, entities.TypeBallot, d.BallotID)
		if err != nil {
			if entities.AsKind(err, entities.KindNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, reduceBallot(d.RoundID, be.(*entities.Ballot)))
	}

	speakerTeam := make(tab.SpeakerTeam)
	for _, p := range pop.participants {
		if p.RoleKind == entities.RoleSpeaker && p.Speaker != nil && p.Speaker.TeamID != nil {
			speakerTeam[p.UUID] = *p.Speaker.TeamID
		}
	}
	_, speakerTab := tab.Aggregate(results, speakerTeam)

	out := make([]breaks.SpeakerStanding, 0, len(speakerTab))
	for _, s := range speakerTab {
		out = append(out, breaks.SpeakerStanding{SpeakerID: s.SpeakerID, TeamID: s.TeamID, Rank: s.Rank, Total: s.TotalScore})
	}
	return out, nil
}

// roundResults reduces one round's debates to knockout results and the
// set of teams that played a side in it.
func (e *Executor) roundResults(ctx context.Context, pop *population, roundID uuid.UUID) ([]breaks.KnockoutDebateResult, breaks.RoundParticipation, error) {
	var results []breaks.KnockoutDebateResult
	played := make(breaks.RoundParticipation)

	for _, d := range pop.debates {
		if d.RoundID != roundID || d.BallotID == uuid.Nil {
			continue
		}
		be, err := e.Store.Get(ctx, entities.TypeBallot, d.BallotID)
		if err != nil {
			if entities.AsKind(err, entities.KindNotFound) {
				continue
			}
			return nil, nil, err
		}
		ballot := be.(*entities.Ballot)
		r := breaks.KnockoutDebateResult{DebateID: d.UUID}
		if ballot.Government.TeamID != nil {
			r.GovTeamID = *ballot.Government.TeamID
			played[r.GovTeamID] = true
		}
		if ballot.Opposition.TeamID != nil {
			r.OppTeamID = *ballot.Opposition.TeamID
			played[r.OppTeamID] = true
		}

		govScore, govOK := meanScore(ballot.Government.Scores)
		oppScore, oppOK := meanScore(ballot.Opposition.Scores)
		r.GovScore = govScore + sumSideSpeeches(ballot, entities.SpeechGov)
		r.OppScore = oppScore + sumSideSpeeches(ballot, entities.SpeechOpp)
		r.ScoresComplete = govOK && oppOK
		results = append(results, r)
	}
	return results, played, nil
}

func sumSideSpeeches(b *entities.Ballot, role entities.SpeechRole) float64 {
	total := 0.0
	for _, sp := range b.Speeches {
		if sp.Role != role || sp.IsOptOut {
			continue
		}
		if s, ok := meanScore(sp.Scores); ok {
			total += s
		}
	}
	return total
}
