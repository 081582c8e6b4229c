package viewcache

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/tab"
)

// tabView is the LoadedView backing ViewTab. It folds every completed
// ballot in the tournament into ranked team and speaker standings via
// internal/tab.Aggregate, and re-aggregates whenever a committed group
// touches a round, debate, ballot, participant or team belonging to
// its tournament.
type tabView struct {
	store        entities.Store
	tournamentID uuid.UUID

	mu       sync.Mutex
	lastTeam json.RawMessage
	lastSpk  json.RawMessage
}

// tabSnapshot is the wire shape ViewString renders.
type tabSnapshot struct {
	Teams    json.RawMessage `json:"teams"`
	Speakers json.RawMessage `json:"speakers"`
}

// NewTabView constructs the LoadedView for ViewTab. Registered under
// DefaultFactory; only ever invoked by Cache.loadOrGet on first
// subscription to a given tournament's tab.
func NewTabView(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	v := &tabView{store: store, tournamentID: spec.TournamentID}
	teamJSON, spkJSON, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.lastTeam, v.lastSpk = teamJSON, spkJSON
	return v, nil
}

func (v *tabView) ViewString(ctx context.Context) (json.RawMessage, error) {
	teamJSON, spkJSON, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.lastTeam, v.lastSpk = teamJSON, spkJSON
	v.mu.Unlock()
	return json.Marshal(tabSnapshot{Teams: teamJSON, Speakers: spkJSON})
}

func (v *tabView) UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error) {
	tid, ok := group.TournamentID()
	if !ok || tid != v.tournamentID {
		return nil, nil
	}
	if !v.groupTouchesTab(group) {
		return nil, nil
	}

	teamJSON, spkJSON, err := v.render(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	changes := make(map[string]json.RawMessage, 2)
	if !bytes.Equal(teamJSON, v.lastTeam) {
		changes["teams"] = teamJSON
	}
	if !bytes.Equal(spkJSON, v.lastSpk) {
		changes["speakers"] = spkJSON
	}
	v.lastTeam, v.lastSpk = teamJSON, spkJSON
	if len(changes) == 0 {
		return nil, nil
	}
	return changes, nil
}

func (v *tabView) groupTouchesTab(group *changelog.EntityGroup) bool {
	relevant := false
	touch := func(t entities.EntityType) {
		switch t {
		case entities.TypeBallot, entities.TypeDebate, entities.TypeRound, entities.TypeParticipant, entities.TypeTeam:
			relevant = true
		}
	}
	group.EachUpsert(func(e entities.Entity) { touch(e.EntityType()) })
	group.EachDelete(func(t entities.EntityType, _ uuid.UUID) { touch(t) })
	return relevant
}

func (v *tabView) render(ctx context.Context) (teamJSON, spkJSON json.RawMessage, err error) {
	debates, err := v.loadDebateResults(ctx)
	if err != nil {
		return nil, nil, err
	}
	speakerTeam, err := v.loadSpeakerTeams(ctx)
	if err != nil {
		return nil, nil, err
	}
	teamTab, speakerTab := tab.Aggregate(debates, speakerTeam)
	if teamJSON, err = json.Marshal(teamTab); err != nil {
		return nil, nil, err
	}
	if spkJSON, err = json.Marshal(speakerTab); err != nil {
		return nil, nil, err
	}
	return teamJSON, spkJSON, nil
}

func (v *tabView) loadSpeakerTeams(ctx context.Context) (tab.SpeakerTeam, error) {
	participants, err := v.store.GetAllInTournament(ctx, entities.TypeParticipant, v.tournamentID)
	if err != nil {
		return nil, err
	}
	out := make(tab.SpeakerTeam)
	for _, e := range participants {
		p := e.(*entities.Participant)
		if p.RoleKind == entities.RoleSpeaker && p.Speaker != nil && p.Speaker.TeamID != nil {
			out[p.UUID] = *p.Speaker.TeamID
		}
	}
	return out, nil
}

func (v *tabView) loadDebateResults(ctx context.Context) ([]tab.DebateResult, error) {
	roundEntities, err := v.store.GetAllInTournament(ctx, entities.TypeRound, v.tournamentID)
	if err != nil {
		return nil, err
	}
	debateEntities, err := v.store.GetAllInTournament(ctx, entities.TypeDebate, v.tournamentID)
	if err != nil {
		return nil, err
	}

	var out []tab.DebateResult
	for _, re := range roundEntities {
		round := re.(*entities.TournamentRound)
		for _, de := range debateEntities {
			debate := de.(*entities.TournamentDebate)
			if debate.RoundID != round.UUID || debate.BallotID == uuid.Nil {
				continue
			}
			be, err := v.store.Get(ctx, entities.TypeBallot, debate.BallotID)
			if err != nil {
				if entities.AsKind(err, entities.KindNotFound) {
					continue
				}
				return nil, err
			}
			out = append(out, ballotToDebateResult(round.UUID, be.(*entities.Ballot)))
		}
	}
	return out, nil
}

// ballotToDebateResult reduces a scored Ballot to the shape
// tab.Aggregate needs: team scores are the mean over the panel's
// individual scores for that side, matching how the original system
// folds panel splits into one team mark.
func ballotToDebateResult(roundID uuid.UUID, b *entities.Ballot) tab.DebateResult {
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
