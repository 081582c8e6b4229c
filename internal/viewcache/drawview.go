package viewcache

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// drawDebateRow is one debate's rendered position in a round's draw.
type drawDebateRow struct {
	DebateID     uuid.UUID   `json:"debate_id"`
	Index        int         `json:"index"`
	VenueID      *uuid.UUID  `json:"venue_id,omitempty"`
	Government   *uuid.UUID  `json:"government_team_id,omitempty"`
	Opposition   *uuid.UUID  `json:"opposition_team_id,omitempty"`
	Chair        *uuid.UUID  `json:"chair_id,omitempty"`
	Wings        []uuid.UUID `json:"wing_ids,omitempty"`
	NonAligned   []uuid.UUID `json:"non_aligned_speaker_ids,omitempty"`
	MotionShown  bool        `json:"motion_released_to_non_aligned"`
}

// drawView is the LoadedView backing ViewDraw: one round's debate
// table (sides, panel, venue), re-rendered whenever a committed group
// touches a debate, ballot or venue belonging to this round's
// tournament.
type drawView struct {
	store        entities.Store
	roundID      uuid.UUID
	tournamentID uuid.UUID

	mu   sync.Mutex
	last json.RawMessage
}

// NewDrawView constructs the LoadedView for ViewDraw.
func NewDrawView(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	re, err := store.Get(ctx, entities.TypeRound, spec.RoundID)
	if err != nil {
		return nil, err
	}
	round := re.(*entities.TournamentRound)
	v := &drawView{store: store, roundID: spec.RoundID, tournamentID: round.TournamentID}
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.last = snap
	return v, nil
}

func (v *drawView) ViewString(ctx context.Context) (json.RawMessage, error) {
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.last = snap
	v.mu.Unlock()
	return snap, nil
}

func (v *drawView) UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error) {
	tid, ok := group.TournamentID()
	if !ok || tid != v.tournamentID {
		return nil, nil
	}
	relevant := false
	touch := func(t entities.EntityType) {
		switch t {
		case entities.TypeDebate, entities.TypeBallot, entities.TypeVenue, entities.TypeRound:
			relevant = true
		}
	}
	group.EachUpsert(func(e entities.Entity) { touch(e.EntityType()) })
	group.EachDelete(func(t entities.EntityType, _ uuid.UUID) { touch(t) })
	if !relevant {
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
	return map[string]json.RawMessage{"debates": snap}, nil
}

func (v *drawView) render(ctx context.Context) (json.RawMessage, error) {
	debateEntities, err := v.store.GetAllInTournament(ctx, entities.TypeDebate, v.tournamentID)
	if err != nil {
		return nil, err
	}
	var rows []drawDebateRow
	for _, de := range debateEntities {
		debate := de.(*entities.TournamentDebate)
		if debate.RoundID != v.roundID {
			continue
		}
		row := drawDebateRow{
			DebateID:    debate.UUID,
			Index:       debate.Index,
			VenueID:     debate.VenueID,
			MotionShown: debate.IsMotionReleasedToNonAligned,
		}
		if debate.BallotID != uuid.Nil {
			if be, err := v.store.Get(ctx, entities.TypeBallot, debate.BallotID); err == nil {
				ballot := be.(*entities.Ballot)
				row.Government = ballot.Government.TeamID
				row.Opposition = ballot.Opposition.TeamID
				if chair, ok := ballot.Chair(); ok {
					row.Chair = &chair
				}
				row.Wings = ballot.Wings()
				for _, sp := range ballot.Speeches {
					if sp.Role == entities.SpeechNonAligned && sp.SpeakerID != nil {
						row.NonAligned = append(row.NonAligned, *sp.SpeakerID)
					}
				}
			} else if !entities.AsKind(err, entities.KindNotFound) {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return json.Marshal(rows)
}
