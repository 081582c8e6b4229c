// internal/api/feedback_handlers.go
// Feedback obligation reads and submission, grounded on
// open_tab_server's feedback.rs: a (debate, source, target) pair's
// obligation status, and submitting the answers that discharge it.
// Every successful submission also appends an audit document to
// Mongo, matching the progress-view observability feedback_progress.rs
// exposes in the original implementation.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/feedback"
	"tournament-engine/internal/models"
)

// HandleGetFeedbackObligation serves GET
// /feedback/debate/{did}/for/{target}/from/{source}.
func HandleGetFeedbackObligation(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		req, _, err := resolveFeedbackRequest(ctx, d, c)
		if err != nil {
			writeError(c, err)
			return
		}

		view := models.FeedbackObligationView{
			DebateID:   req.DebateID,
			TargetID:   req.TargetID,
			SourceRole: string(req.SourceRole),
			TargetRole: string(req.TargetRole),
			Submitted:  len(req.SubmittedResponseIDs) > 0,
		}
		if view.Submitted {
			view.ResponseID = &req.SubmittedResponseIDs[0]
		}
		c.JSON(http.StatusOK, view)
	}
}

// HandlePostFeedbackSubmission serves POST
// /feedback/debate/{did}/for/{target}/from/{source}.
func HandlePostFeedbackSubmission(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var body models.FeedbackSubmissionRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		req, tournamentID, err := resolveFeedbackRequest(ctx, d, c)
		if err != nil {
			writeError(c, err)
			return
		}

		questions, err := loadFeedbackQuestions(ctx, d, tournamentID)
		if err != nil {
			writeError(c, err)
			return
		}

		values := make(map[uuid.UUID]entities.FeedbackAnswerValue, len(body.Answers))
		for _, a := range body.Answers {
			v := entities.FeedbackAnswerValue{}
			switch {
			case a.Bool != nil:
				v.Kind, v.Bool = entities.AnswerBool, *a.Bool
			case a.Int != nil:
				v.Kind, v.Int = entities.AnswerInt, *a.Int
			case a.Text != nil:
				v.Kind, v.Text = entities.AnswerText, *a.Text
			}
			values[a.QuestionID] = v
		}

		for _, q := range questions {
			v, answered := values[q.UUID]
			var vp *entities.FeedbackAnswerValue
			if answered {
				vp = &v
			}
			if err := feedback.ValidateResponse(q, vp); err != nil {
				writeError(c, err)
				return
			}
		}

		author := uuid.Nil
		if raw, ok := c.Get("participant_id"); ok {
			if parsed, err := uuid.Parse(raw.(string)); err == nil {
				author = parsed
			}
		}
		if req.SourceParticipantID != nil {
			// Individual obligations may only be discharged by the obligated
			// participant themselves.
			if author != *req.SourceParticipantID {
				c.JSON(http.StatusForbidden, gin.H{"error": "feedback must be submitted by its obligated source"})
				return
			}
		}

		response := &entities.FeedbackResponse{
			UUID:                uuid.New(),
			AuthorParticipantID: author,
			TargetParticipantID: req.TargetID,
			SourceDebateID:      req.DebateID,
			SourceParticipantID: req.SourceParticipantID,
			SourceTeamID:        req.SourceTeamID,
			Values:              values,
		}

		group := changelog.NewEntityGroup()
		if err := group.Add(ctx, d.Store, response, true); err != nil {
			writeError(c, err)
			return
		}
		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}
		notifyViews(ctx, d, group)

		recordFeedbackAudit(ctx, d, response)

		c.JSON(http.StatusCreated, models.FeedbackSubmissionResponse{ResponseID: response.UUID})
	}
}

// resolveFeedbackRequest builds the single FeedbackRequest named by a
// debate/target/source path, deriving the full obligation matrix for
// the debate and picking out the one matching entry.
func resolveFeedbackRequest(ctx context.Context, d *Deps, c *gin.Context) (feedback.FeedbackRequest, uuid.UUID, error) {
	debate, tournamentID, err := loadDebate(ctx, d, c.Param("did"))
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, err
	}
	targetID, err := uuid.Parse(c.Param("target"))
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, entities.NotFound("invalid target id %q", c.Param("target"))
	}
	sourceID, err := uuid.Parse(c.Param("source"))
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, entities.NotFound("invalid source id %q", c.Param("source"))
	}

	ballotEntity, err := d.Store.Get(ctx, entities.TypeBallot, debate.BallotID)
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, err
	}
	ballot := ballotEntity.(*entities.Ballot)
	ballotCtx := buildBallotContext(debate, ballot)

	forms, err := loadFeedbackForms(ctx, d, tournamentID)
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, err
	}
	requests := feedback.DeriveObligations(forms, []feedback.BallotContext{ballotCtx})

	responses, err := loadFeedbackResponses(ctx, d, tournamentID)
	if err != nil {
		return feedback.FeedbackRequest{}, uuid.Nil, err
	}
	requests = feedback.JoinResponses(requests, responses)

	for _, r := range requests {
		if r.TargetID != targetID {
			continue
		}
		if r.SourceParticipantID != nil && *r.SourceParticipantID == sourceID {
			return r, tournamentID, nil
		}
		if r.SourceTeamID != nil && *r.SourceTeamID == sourceID {
			return r, tournamentID, nil
		}
	}
	return feedback.FeedbackRequest{}, uuid.Nil, entities.NotFound("no feedback obligation from %s to %s on debate %s", sourceID, targetID, debate.UUID)
}

func buildBallotContext(debate *entities.TournamentDebate, ballot *entities.Ballot) feedback.BallotContext {
	ctx := feedback.BallotContext{
		DebateID:  debate.UUID,
		President: ballot.President,
		GovTeamID: safeTeamID(ballot.Government.TeamID),
		OppTeamID: safeTeamID(ballot.Opposition.TeamID),
	}
	if chair, ok := ballot.Chair(); ok {
		ctx.Chair = &chair
	}
	ctx.Wings = ballot.Wings()

	seen := make(map[uuid.UUID]bool)
	for _, sp := range ballot.Speeches {
		if sp.Role == entities.SpeechNonAligned && sp.SpeakerID != nil && !seen[*sp.SpeakerID] {
			seen[*sp.SpeakerID] = true
			ctx.NonAligned = append(ctx.NonAligned, *sp.SpeakerID)
		}
	}
	return ctx
}

func safeTeamID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func loadFeedbackForms(ctx context.Context, d *Deps, tournamentID uuid.UUID) ([]*entities.FeedbackForm, error) {
	all, err := d.Store.GetAllInTournament(ctx, entities.TypeFeedbackForm, tournamentID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.FeedbackForm, len(all))
	for i, e := range all {
		out[i] = e.(*entities.FeedbackForm)
	}
	return out, nil
}

func loadFeedbackQuestions(ctx context.Context, d *Deps, tournamentID uuid.UUID) ([]*entities.FeedbackQuestion, error) {
	all, err := d.Store.GetAllInTournament(ctx, entities.TypeFeedbackQuestion, tournamentID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.FeedbackQuestion, len(all))
	for i, e := range all {
		out[i] = e.(*entities.FeedbackQuestion)
	}
	return out, nil
}

func loadFeedbackResponses(ctx context.Context, d *Deps, tournamentID uuid.UUID) ([]*entities.FeedbackResponse, error) {
	all, err := d.Store.GetAllInTournament(ctx, entities.TypeFeedbackResponse, tournamentID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.FeedbackResponse, len(all))
	for i, e := range all {
		out[i] = e.(*entities.FeedbackResponse)
	}
	return out, nil
}

// recordFeedbackAudit appends one document per submission event to the
// feedback_submissions collection. Failures are logged and swallowed:
// the stored FeedbackResponse is authoritative, the audit trail is
// best-effort observability.
func recordFeedbackAudit(ctx context.Context, d *Deps, response *entities.FeedbackResponse) {
	if d.Mongo == nil {
		return
	}
	doc := bson.M{
		"response_id":  response.UUID.String(),
		"debate_id":    response.SourceDebateID.String(),
		"target_id":    response.TargetParticipantID.String(),
		"submitted_at": time.Now().UTC(),
	}
	if response.SourceParticipantID != nil {
		doc["source_participant_id"] = response.SourceParticipantID.String()
	}
	if response.SourceTeamID != nil {
		doc["source_team_id"] = response.SourceTeamID.String()
	}
	if _, err := d.Mongo.Collection("feedback_submissions").InsertOne(ctx, doc); err != nil && d.Logger != nil {
		d.Logger.Printf("feedback audit: failed to record submission %s: %v", response.UUID, err)
	}
}
