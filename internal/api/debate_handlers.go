// internal/api/debate_handlers.go
// Debate timing and state endpoints, grounded on open_tab_server's
// debate.rs: the chair's live-timing control surface and the single
// debate-level state transition (non-aligned motion release).

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/models"
)

// Segment layout mirrors debate.rs: Gov/Opp speeches run 7 minutes
// with protected opening/closing minutes; non-aligned speeches run
// 3:30 with 30-second protected windows at either end, followed by a
// 60 second floor response that is a single unprotected segment.
const (
	teamSpeechSeconds          = 7 * 60
	teamProtectedSeconds       = 60
	nonAlignedSpeechSeconds    = 3*60 + 30
	nonAlignedProtectedSeconds = 30
	nonAlignedResponseSeconds  = 60
)

func speechSegments(role entities.SpeechRole, isResponse bool) ([]models.TimingSegment, int) {
	if role == entities.SpeechNonAligned && isResponse {
		return []models.TimingSegment{
			{DurationSeconds: nonAlignedResponseSeconds, EndRing: models.RingDouble, SegmentType: models.SegmentNormal},
		}, nonAlignedResponseSeconds
	}
	if role == entities.SpeechNonAligned {
		total := nonAlignedSpeechSeconds
		return []models.TimingSegment{
			{DurationSeconds: nonAlignedProtectedSeconds, EndRing: models.RingSingle, SegmentType: models.SegmentProtected},
			{DurationSeconds: total - 2*nonAlignedProtectedSeconds, EndRing: models.RingSingle, SegmentType: models.SegmentNormal},
			{DurationSeconds: nonAlignedProtectedSeconds, EndRing: models.RingDouble, SegmentType: models.SegmentProtected},
		}, total
	}
	total := teamSpeechSeconds
	return []models.TimingSegment{
		{DurationSeconds: teamProtectedSeconds, EndRing: models.RingSingle, SegmentType: models.SegmentProtected},
		{DurationSeconds: total - 2*teamProtectedSeconds, EndRing: models.RingSingle, SegmentType: models.SegmentNormal},
		{DurationSeconds: teamProtectedSeconds, EndRing: models.RingDouble, SegmentType: models.SegmentProtected},
	}, total
}

// HandleGetDebateTiming serves GET /debate/{did}/timing.
func HandleGetDebateTiming(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		debate, tournamentID, err := loadDebate(ctx, d, c.Param("did"))
		if err != nil {
			writeError(c, err)
			return
		}

		ballotEntity, err := d.Store.Get(ctx, entities.TypeBallot, debate.BallotID)
		if err != nil {
			writeError(c, err)
			return
		}
		ballot := ballotEntity.(*entities.Ballot)

		timings, err := timingsForBallot(ctx, d, tournamentID, debate.BallotID)
		if err != nil {
			writeError(c, err)
			return
		}

		resp := models.DebateTimingResponse{ParticipantMayControl: isDebateChair(c, ballot)}
		for _, sp := range entities.SortSpeeches(ballot.Speeches) {
			timing := timings[timingKey(sp.Role, sp.Position)]
			resp.Speeches = append(resp.Speeches, buildSpeechTiming(sp.Role, sp.Position, false, timing))
			if sp.Role == entities.SpeechNonAligned {
				resp.Speeches = append(resp.Speeches, buildSpeechTiming(sp.Role, sp.Position, true, timing))
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

func buildSpeechTiming(role entities.SpeechRole, position int, isResponse bool, timing *entities.BallotSpeechTiming) models.SpeechTimingInfo {
	segments, target := speechSegments(role, isResponse)
	info := models.SpeechTimingInfo{
		Role:                string(role),
		Position:            position,
		TargetLengthSeconds: target,
		Segments:            segments,
		IsResponse:          isResponse,
	}
	if timing == nil {
		return info
	}
	if isResponse {
		info.Start = timing.ResponseStart
		info.End = timing.ResponseEnd
		info.PauseMilliseconds = int(timing.ResponsePauseMs)
	} else {
		info.Start = timing.Start
		info.End = timing.End
		info.PauseMilliseconds = int(timing.PauseMs)
	}
	return info
}

// HandlePatchDebateTiming serves PATCH /debate/{did}/timing: it updates
// or creates the BallotSpeechTiming row for one speech slot.
func HandlePatchDebateTiming(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.DebateTimingUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		debate, tournamentID, err := loadDebate(ctx, d, c.Param("did"))
		if err != nil {
			writeError(c, err)
			return
		}

		ballotEntity, err := d.Store.Get(ctx, entities.TypeBallot, debate.BallotID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !isDebateChair(c, ballotEntity.(*entities.Ballot)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the chair may record timings"})
			return
		}

		timings, err := timingsForBallot(ctx, d, tournamentID, debate.BallotID)
		if err != nil {
			writeError(c, err)
			return
		}

		role := entities.SpeechRole(req.SpeechRole)
		timing := timings[timingKey(role, req.SpeechPosition)]
		if timing == nil {
			timing = &entities.BallotSpeechTiming{
				UUID:           uuid.New(),
				SpeechBallotID: debate.BallotID,
				SpeechRole:     role,
				SpeechPosition: req.SpeechPosition,
			}
		}
		if req.Start != nil {
			timing.Start = req.Start
		}
		if req.End != nil {
			timing.End = req.End
		}
		if req.ResponseStart != nil {
			timing.ResponseStart = req.ResponseStart
		}
		if req.ResponseEnd != nil {
			timing.ResponseEnd = req.ResponseEnd
		}
		if req.PauseMilliseconds != nil {
			timing.PauseMs = int64(*req.PauseMilliseconds)
		}
		if req.ResponsePauseMilliseconds != nil {
			timing.ResponsePauseMs = int64(*req.ResponsePauseMilliseconds)
		}

		group := changelog.NewEntityGroup()
		if err := group.Add(ctx, d.Store, timing, false); err != nil {
			writeError(c, err)
			return
		}
		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}

		notifyViews(ctx, d, group)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// HandleGetDebateParticipants serves GET /debate/{did}/participants:
// the seating of one debate for clients that only hold a debate id.
func HandleGetDebateParticipants(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		debate, _, err := loadDebate(ctx, d, c.Param("did"))
		if err != nil {
			writeError(c, err)
			return
		}
		ballotEntity, err := d.Store.Get(ctx, entities.TypeBallot, debate.BallotID)
		if err != nil {
			writeError(c, err)
			return
		}
		ballot := ballotEntity.(*entities.Ballot)

		resp := models.DebateParticipantsResponse{
			DebateID:   debate.UUID,
			Government: ballot.Government.TeamID,
			Opposition: ballot.Opposition.TeamID,
			Wings:      ballot.Wings(),
		}
		if chair, ok := ballot.Chair(); ok {
			resp.Chair = &chair
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandlePostDebateState serves POST /debate/{did}/state. Today the only
// variant is non-aligned motion release.
func HandlePostDebateState(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req models.DebateStateUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
		if req.State != "non_aligned_motion_release" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
			return
		}

		debate, _, err := loadDebate(ctx, d, c.Param("did"))
		if err != nil {
			writeError(c, err)
			return
		}
		debate.IsMotionReleasedToNonAligned = req.Release

		group := changelog.NewEntityGroup()
		if err := group.Add(ctx, d.Store, debate, false); err != nil {
			writeError(c, err)
			return
		}
		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}

		notifyViews(ctx, d, group)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func loadDebate(ctx context.Context, d *Deps, idParam string) (*entities.TournamentDebate, uuid.UUID, error) {
	id, err := uuid.Parse(idParam)
	if err != nil {
		return nil, uuid.Nil, entities.NotFound("invalid debate id %q", idParam)
	}
	e, err := d.Store.Get(ctx, entities.TypeDebate, id)
	if err != nil {
		return nil, uuid.Nil, err
	}
	debate := e.(*entities.TournamentDebate)
	tournamentID, err := debate.ResolveTournamentID(ctx, d.Store)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return debate, tournamentID, nil
}

// timingsForBallot loads every recorded timing row for a ballot, keyed
// by (role, position). Timing rows are scoped to a tournament, so this
// loads the tournament's full set and filters, matching the
// GetAllInTournament-then-filter pattern the view cache uses.
func timingsForBallot(ctx context.Context, d *Deps, tournamentID, ballotID uuid.UUID) (map[string]*entities.BallotSpeechTiming, error) {
	all, err := d.Store.GetAllInTournament(ctx, entities.TypeBallotSpeechTiming, tournamentID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*entities.BallotSpeechTiming)
	for _, e := range all {
		t := e.(*entities.BallotSpeechTiming)
		if t.SpeechBallotID != ballotID {
			continue
		}
		out[timingKey(t.SpeechRole, t.SpeechPosition)] = t
	}
	return out, nil
}

func timingKey(role entities.SpeechRole, position int) string {
	return string(role) + ":" + strconv.Itoa(position)
}

// isDebateChair reports whether the authenticated participant chairs
// this ballot's panel. Organizer JWTs bypass the participant-key
// middleware entirely, so only participant requests reach this check.
func isDebateChair(c *gin.Context, ballot *entities.Ballot) bool {
	chair, ok := ballot.Chair()
	if !ok {
		return false
	}
	raw, exists := c.Get("participant_id")
	if !exists {
		return false
	}
	return raw.(string) == chair.String()
}

// notifyViews opens a read-only transaction solely to fan the saved
// group's changes through every loaded view and the websocket hub, and
// rolls it back afterwards, the way the teacher's handlers pushed a
// broadcast after a successful write.
func notifyViews(ctx context.Context, d *Deps, group *changelog.EntityGroup) {
	tx, err := d.Store.BeginTx(ctx)
	if err != nil {
		return
	}
	defer tx.Rollback()

	tournamentID, ok := group.TournamentID()
	notifications := d.Views.Notify(ctx, tx, group)
	if !ok {
		return
	}
	for _, n := range notifications {
		d.Hub.BroadcastViewChange(tournamentID.String(), n)
	}
}
