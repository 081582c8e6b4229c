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
	"tournament-engine/internal/feedback"
)

// feedbackView is the LoadedView backing ViewFeedback: per-debate
// submission progress against the derived obligation matrix, the
// tab-room's view of who still owes feedback.
type feedbackView struct {
	store        entities.Store
	tournamentID uuid.UUID

	mu   sync.Mutex
	last json.RawMessage
}

type feedbackDebateProgress struct {
	DebateID  uuid.UUID `json:"debate_id"`
	Expected  int       `json:"expected"`
	Submitted int       `json:"submitted"`
}

type feedbackSnapshot struct {
	TournamentID uuid.UUID                `json:"tournament_id"`
	Expected     int                      `json:"expected"`
	Submitted    int                      `json:"submitted"`
	Debates      []feedbackDebateProgress `json:"debates"`
}

// NewFeedbackView constructs the LoadedView for ViewFeedback.
func NewFeedbackView(ctx context.Context, store entities.Store, spec ViewSpec) (LoadedView, error) {
	v := &feedbackView{store: store, tournamentID: spec.TournamentID}
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.last = snap
	return v, nil
}

func (v *feedbackView) ViewString(ctx context.Context) (json.RawMessage, error) {
	snap, err := v.render(ctx)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.last = snap
	v.mu.Unlock()
	return snap, nil
}

func (v *feedbackView) UpdateAndGetChanges(ctx context.Context, tx entities.Tx, group *changelog.EntityGroup) (map[string]json.RawMessage, error) {
	tid, ok := group.TournamentID()
	if !ok || tid != v.tournamentID {
		return nil, nil
	}
	relevant := false
	touch := func(t entities.EntityType) {
		switch t {
		case entities.TypeBallot, entities.TypeDebate, entities.TypeFeedbackForm, entities.TypeFeedbackResponse:
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
	return map[string]json.RawMessage{"progress": snap}, nil
}

func (v *feedbackView) render(ctx context.Context) (json.RawMessage, error) {
	formEntities, err := v.store.GetAllInTournament(ctx, entities.TypeFeedbackForm, v.tournamentID)
	if err != nil {
		return nil, err
	}
	forms := make([]*entities.FeedbackForm, len(formEntities))
	for i, e := range formEntities {
		forms[i] = e.(*entities.FeedbackForm)
	}

	debateEntities, err := v.store.GetAllInTournament(ctx, entities.TypeDebate, v.tournamentID)
	if err != nil {
		return nil, err
	}
	var contexts []feedback.BallotContext
	for _, de := range debateEntities {
		debate := de.(*entities.TournamentDebate)
		if debate.BallotID == uuid.Nil {
			continue
		}
		be, err := v.store.Get(ctx, entities.TypeBallot, debate.BallotID)
		if err != nil {
			if entities.AsKind(err, entities.KindNotFound) {
				continue
			}
			return nil, err
		}
		contexts = append(contexts, ballotContextFor(debate, be.(*entities.Ballot)))
	}

	responseEntities, err := v.store.GetAllInTournament(ctx, entities.TypeFeedbackResponse, v.tournamentID)
	if err != nil {
		return nil, err
	}
	responses := make([]*entities.FeedbackResponse, len(responseEntities))
	for i, e := range responseEntities {
		responses[i] = e.(*entities.FeedbackResponse)
	}

	requests := feedback.JoinResponses(feedback.DeriveObligations(forms, contexts), responses)

	perDebate := make(map[uuid.UUID]*feedbackDebateProgress)
	snap := feedbackSnapshot{TournamentID: v.tournamentID, Debates: []feedbackDebateProgress{}}
	for _, r := range requests {
		p := perDebate[r.DebateID]
		if p == nil {
			p = &feedbackDebateProgress{DebateID: r.DebateID}
			perDebate[r.DebateID] = p
		}
		p.Expected++
		snap.Expected++
		if len(r.SubmittedResponseIDs) > 0 {
			p.Submitted++
			snap.Submitted++
		}
	}
	for _, p := range perDebate {
		snap.Debates = append(snap.Debates, *p)
	}
	sort.Slice(snap.Debates, func(i, j int) bool {
		return snap.Debates[i].DebateID.String() < snap.Debates[j].DebateID.String()
	})

	return json.Marshal(snap)
}

// ballotContextFor reduces one debate's ballot to the endpoints the
// obligation derivation reads.
func ballotContextFor(debate *entities.TournamentDebate, ballot *entities.Ballot) feedback.BallotContext {
	ctx := feedback.BallotContext{DebateID: debate.UUID, President: ballot.President}
	if chair, ok := ballot.Chair(); ok {
		ctx.Chair = &chair
	}
	ctx.Wings = ballot.Wings()
	if ballot.Government.TeamID != nil {
		ctx.GovTeamID = *ballot.Government.TeamID
	}
	if ballot.Opposition.TeamID != nil {
		ctx.OppTeamID = *ballot.Opposition.TeamID
	}
	seen := make(map[uuid.UUID]bool)
	for _, sp := range ballot.Speeches {
		if sp.Role == entities.SpeechNonAligned && sp.SpeakerID != nil && !seen[*sp.SpeakerID] {
			seen[*sp.SpeakerID] = true
			ctx.NonAligned = append(ctx.NonAligned, *sp.SpeakerID)
		}
	}
	return ctx
}
