package viewcache

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// breakView is the LoadedView backing ViewBreak: the advancing rosters
// of one computed break, with team and speaker names resolved.
type breakView struct {
	store        entities.Store
	breakID      uuid.UUID
	tournamentID uuid.UUID

	mu   sync.Mutex
	last json.RawMessage
}

type breakSnapshot struct {
	BreakID              uuid.UUID        `json:"break_id"`
	BreakingTeams        []breakTeamRow   `json:"breaking_teams"`
	BreakingSpeakers     []breakPersonRow `json:"breaking_speakers"`
	BreakingAdjudicators []breakPersonRow `json:"breaking_adjudicators"`
}

type breakTeamRow struct {
	TeamID uuid.UUID `json:"team_id"`
	Name   string    `json:"name,omitempty"`
}

type breakPersonRow struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name,omitempty"`
}

// NewBreakView constructs the LoadedView for ViewBreak.
func NewBreakView(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	be, err := store.Get(ctx, entities.TypeBreak, spec.BreakID)
	if err != nil {
		return nil, err
	}
	brk := be.(*entities.TournamentBreak)
	v := &breakView{store: store, breakID: spec.BreakID, tournamentID: brk.TournamentID}
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.last = snap
	return v, nil
}

func (v *breakView) ViewString(ctx context.Context) (json.RawMessage, error) {
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.last = snap
	v.mu.Unlock()
	return snap, nil
}

func (v *breakView) UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error) {
	tid, ok := group.TournamentID()
	if !ok || tid != v.tournamentID {
		return nil, nil
	}
	if !group.Touches(entities.TypeBreak, v.breakID) {
		return nil, nil
	}

	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if bytes.Equal(snap, v.last) {
		return nil, nil
	}
	v.last = snap
	return map[string]json.RawMessage{"break": snap}, nil
}

func (v *breakView) render(ctx context.Context) (json.RawMessage, error) {
	be, err := v.store.Get(ctx, entities.TypeBreak, v.breakID)
	if err != nil {
		return nil, err
	}
	brk := be.(*entities.TournamentBreak)

	snap := breakSnapshot{
		BreakID:              brk.UUID,
		BreakingTeams:        []breakTeamRow{},
		BreakingSpeakers:     []breakPersonRow{},
		BreakingAdjudicators: []breakPersonRow{},
	}

	teams, err := v.store.TryGetMany(ctx, entities.TypeTeam, brk.BreakingTeams)
	if err != nil {
		return nil, err
	}
	for i, te := range teams {
		row := breakTeamRow{TeamID: brk.BreakingTeams[i]}
		if te != nil {
			row.Name = te.(*entities.Team).Name
		}
		snap.BreakingTeams = append(snap.BreakingTeams, row)
	}

	snap.BreakingSpeakers, err = v.personRows(ctx, brk.BreakingSpeakers)
	if err != nil {
		return nil, err
	}
	snap.BreakingAdjudicators, err = v.personRows(ctx, brk.BreakingAdjudicators)
	if err != nil {
		return nil, err
	}

	return json.Marshal(snap)
}

func (v *breakView) personRows(ctx context.Context, ids []uuid.UUID) ([]breakPersonRow, error) {
	participants, err := v.store.TryGetMany(ctx, entities.TypeParticipant, ids)
	if err != nil {
		return nil, err
	}
	rows := make([]breakPersonRow, 0, len(ids))
	for i, pe := range participants {
		row := breakPersonRow{ParticipantID: ids[i]}
		if pe != nil {
			p := pe.(*entities.Participant)
			if !p.IsAnonymous {
				row.Name = p.Name
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
