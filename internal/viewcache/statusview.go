package viewcache

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// statusRoundRow is one round's progress in the tournament-status
// snapshot.
type statusRoundRow struct {
	RoundID         uuid.UUID  `json:"round_id"`
	Index           int        `json:"index"`
	IsSilent        bool       `json:"is_silent"`
	DrawReleased    bool       `json:"draw_released"`
	MotionReleased  bool       `json:"motion_released"`
	RoundClosed     bool       `json:"round_closed"`
	DebateCount     int        `json:"debate_count"`
	DebateStartTime *time.Time `json:"debate_start_time,omitempty"`
}

type statusSnapshot struct {
	TournamentID     uuid.UUID        `json:"tournament_id"`
	Name             string           `json:"name"`
	TeamCount        int              `json:"team_count"`
	ParticipantCount int              `json:"participant_count"`
	Rounds           []statusRoundRow `json:"rounds"`
}

// statusView is the LoadedView backing ViewTournamentStatus: a
// tournament's round-by-round progress, cheap enough to re-render on
// any committed group that touches its inputs.
type statusView struct {
	store        entities.Store
	tournamentID uuid.UUID

	mu   sync.Mutex
	last json.RawMessage
}

// NewTournamentStatusView constructs the LoadedView for
// ViewTournamentStatus.
func NewTournamentStatusView(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	v := &statusView{store: store, tournamentID: spec.TournamentID}
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.last = snap
	return v, nil
}

func (v *statusView) ViewString(ctx context.Context) (json.RawMessage, error) {
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.last = snap
	v.mu.Unlock()
	return snap, nil
}

func (v *statusView) UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error) {
	tid, ok := group.TournamentID()
	if !ok || tid != v.tournamentID {
		return nil, nil
	}
	relevant := false
	touch := func(t entities.EntityType) {
		switch t {
		case entities.TypeTournament, entities.TypeRound, entities.TypeDebate, entities.TypeTeam, entities.TypeParticipant:
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
	return map[string]json.RawMessage{"status": snap}, nil
}

func (v *statusView) render(ctx context.Context) (json.RawMessage, error) {
	te, err := v.store.Get(ctx, entities.TypeTournament, v.tournamentID)
	if err != nil {
		return nil, err
	}
	tournament := te.(*entities.Tournament)

	teams, err := v.store.GetAllInTournament(ctx, entities.TypeTeam, v.tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := v.store.GetAllInTournament(ctx, entities.TypeParticipant, v.tournamentID)
	if err != nil {
		return nil, err
	}
	rounds, err := v.store.GetAllInTournament(ctx, entities.TypeRound, v.tournamentID)
	if err != nil {
		return nil, err
	}
	debates, err := v.store.GetAllInTournament(ctx, entities.TypeDebate, v.tournamentID)
	if err != nil {
		return nil, err
	}

	debatesPerRound := make(map[uuid.UUID]int)
	for _, de := range debates {
		debatesPerRound[de.(*entities.TournamentDebate).RoundID]++
	}

	now := time.Now().UTC()
	snap := statusSnapshot{
		TournamentID:     tournament.UUID,
		Name:             tournament.Name,
		TeamCount:        len(teams),
		ParticipantCount: len(participants),
		Rounds:           []statusRoundRow{},
	}
	for _, re := range rounds {
		round := re.(*entities.TournamentRound)
		snap.Rounds = append(snap.Rounds, statusRoundRow{
			RoundID:         round.UUID,
			Index:           round.Index,
			IsSilent:        round.IsSilent,
			DrawReleased:    released(round.DrawReleaseTime, now),
			MotionReleased:  released(round.FullMotionReleaseTime, now),
			RoundClosed:     released(round.RoundCloseTime, now),
			DebateCount:     debatesPerRound[round.UUID],
			DebateStartTime: round.DebateStartTime,
		})
	}
	sort.Slice(snap.Rounds, func(i, j int) bool { return snap.Rounds[i].Index < snap.Rounds[j].Index })

	return json.Marshal(snap)
}

func released(t *time.Time, now time.Time) bool {
	return t != nil && !t.After(now)
}
