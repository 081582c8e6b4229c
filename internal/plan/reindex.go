package plan

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// ReindexRounds recomputes every round's global index from the plan
// DAG: round nodes are visited in topological order (ties broken by
// node uuid for determinism) and their rounds numbered consecutively.
// Rounds whose index changed are staged into the returned group;
// callers run this after plan edges change and commit the group
// through the usual save-and-log pipe. The traversal is iterative with
// a visited set, so a malformed cyclic edge set terminates instead of
// recursing forever; any node left unvisited by the topological pass
// (i.e. on a cycle) is an integrity error.
func (e *Executor) ReindexRounds(ctx context.Context, tournamentID uuid.UUID) (*changelog.EntityGroup, error) {
	pop, err := e.loadPopulation(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	ordered, err := topoOrder(pop.nodes, pop.edges)
	if err != nil {
		return nil, err
	}

	roundByID := make(map[uuid.UUID]*entities.TournamentRound, len(pop.rounds))
	for _, r := range pop.rounds {
		roundByID[r.UUID] = r
	}

	group := changelog.NewEntityGroup()
	next := 0
	for _, node := range ordered {
		if node.Kind != entities.PlanNodeRound {
			continue
		}
		for _, rid := range node.RoundIDs {
			round := roundByID[rid]
			if round == nil {
				return nil, entities.IntegrityViolation("plan node %s references missing round %s", node.UUID, rid)
			}
			if round.Index != next {
				round.Index = next
				if err := group.Add(ctx, e.Store, round, false); err != nil {
					return nil, err
				}
			}
			next++
		}
	}
	return group, nil
}

// topoOrder sorts plan nodes so every edge's source precedes its
// target (Kahn's algorithm over the edge records).
func topoOrder(nodes []*entities.TournamentPlanNode, edges []*entities.TournamentPlanEdge) ([]*entities.TournamentPlanNode, error) {
	byID := make(map[uuid.UUID]*entities.TournamentPlanNode, len(nodes))
	indegree := make(map[uuid.UUID]int, len(nodes))
	successors := make(map[uuid.UUID][]uuid.UUID)
	for _, n := range nodes {
		byID[n.UUID] = n
		indegree[n.UUID] = 0
	}
	for _, e := range edges {
		if byID[e.SourceID] == nil || byID[e.TargetID] == nil {
			return nil, entities.IntegrityViolation("plan edge %s -> %s references a missing node", e.SourceID, e.TargetID)
		}
		successors[e.SourceID] = append(successors[e.SourceID], e.TargetID)
		indegree[e.TargetID]++
	}

	var frontier []uuid.UUID
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	var out []*entities.TournamentPlanNode
	visited := make(map[uuid.UUID]bool, len(nodes))
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].String() < frontier[j].String() })
		id := frontier[0]
		frontier = frontier[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, byID[id])
		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				frontier = append(frontier, succ)
			}
		}
	}

	if len(out) != len(nodes) {
		return nil, entities.IntegrityViolation("plan edges form a cycle over %d of %d nodes", len(nodes)-len(out), len(nodes))
	}
	return out, nil
}
