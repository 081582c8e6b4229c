package entities

import (
	"context"

	"github.com/google/uuid"
)

// TournamentBreak is the output of a break computation: the ordered
// rosters of teams, speakers and adjudicators who advanced. Referenced
// by at most one Break plan node.
type TournamentBreak struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`

	BreakingTeams        []uuid.UUID `json:"breaking_teams"`
	BreakingSpeakers     []uuid.UUID `json:"breaking_speakers"`
	BreakingAdjudicators []uuid.UUID `json:"breaking_adjudicators"`
}

func (b *TournamentBreak) EntityType() EntityType { return TypeBreak }
func (b *TournamentBreak) EntityID() uuid.UUID    { return b.UUID }
func (b *TournamentBreak) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return b.TournamentID, nil
}

// PlanNodeKind discriminates the two shapes a plan node's config can
// take.
type PlanNodeKind string

const (
	PlanNodeRound PlanNodeKind = "round"
	PlanNodeBreak PlanNodeKind = "break"
)

// RoundGroupConfig configures a Round plan node: how many rounds it
// owns and which draw algorithm produces them.
type RoundGroupConfig struct {
	NumRounds int              `json:"num_rounds"`
	DrawType  DrawType         `json:"draw_type"`
	Fold      *FoldDrawSummary `json:"fold,omitempty"`
}

// FoldDrawSummary captures the fold-draw knobs a Round node was
// configured with, mirroring draw.FoldDrawConfig without the engine
// package depending back on entities for the draw algorithms
// themselves.
type FoldDrawSummary struct {
	TeamFoldMethod       string `json:"team_fold_method"`
	TeamAssignmentRule   string `json:"team_assignment_rule"`
	NonAlignedFoldMethod string `json:"non_aligned_fold_method"`
}

// BreakConfig configures a Break plan node: which break algorithm
// produces the break, and which categories of teams/speakers are
// eligible.
type BreakConfig struct {
	BreakType          string      `json:"break_type"` // tab | two_thirds | knockout | tim | manual
	NumDebates         int         `json:"num_debates,omitempty"`
	EligibleCategories []uuid.UUID `json:"eligible_categories,omitempty"`
}

// TournamentPlanNode is one node in the tournament's execution DAG:
// either a group of rounds or a break computation. Round nodes own
// exactly Config.NumRounds rounds.
type TournamentPlanNode struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`

	Kind        PlanNodeKind      `json:"kind"`
	RoundConfig *RoundGroupConfig `json:"round_config,omitempty"`
	BreakConfig *BreakConfig      `json:"break_config,omitempty"`

	RoundIDs []uuid.UUID `json:"round_ids,omitempty"`
	BreakID  *uuid.UUID  `json:"break_id,omitempty"`
}

func (n *TournamentPlanNode) EntityType() EntityType { return TypePlanNode }
func (n *TournamentPlanNode) EntityID() uuid.UUID    { return n.UUID }
func (n *TournamentPlanNode) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return n.TournamentID, nil
}

// TournamentPlanEdge is one directed edge in the plan DAG.
type TournamentPlanEdge struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
}

// syntheticID derives a stable uuid for an edge, since edges have no
// natural identity column of their own (source_id, target_id) is the
// key; the id is derived deterministically from that pair and is not
// part of the edge's JSON body, but the store's row key and
// EntityGroup's batch bookkeeping still need an EntityID.
func (e *TournamentPlanEdge) syntheticID() uuid.UUID {
	return uuid.NewSHA1(e.SourceID, e.TargetID[:])
}

func (e *TournamentPlanEdge) EntityType() EntityType { return TypePlanEdge }
func (e *TournamentPlanEdge) EntityID() uuid.UUID    { return e.syntheticID() }
func (e *TournamentPlanEdge) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	node, err := s.Get(ctx, TypePlanNode, e.SourceID)
	if err != nil {
		return uuid.Nil, err
	}
	return node.(*TournamentPlanNode).TournamentID, nil
}
