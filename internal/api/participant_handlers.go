// internal/api/participant_handlers.go
// Participant-facing reads: a single participant's own profile, and a
// tournament's full participant roster, grounded on
// open_tab_server's participants.rs.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
	"tournament-engine/internal/models"
	"tournament-engine/internal/utils"
)

// HandleGetParticipant serves GET /participant/{pid}.
func HandleGetParticipant(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("pid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
			return
		}

		e, err := d.Store.Get(c.Request.Context(), entities.TypeParticipant, id)
		if err != nil {
			writeError(c, err)
			return
		}
		participant := e.(*entities.Participant)
		c.JSON(http.StatusOK, toParticipantView(participant))
	}
}

// HandleListTournamentParticipants serves GET /tournament/{tid}/participants.
func HandleListTournamentParticipants(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := uuid.Parse(c.Param("tid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
			return
		}

		all, err := d.Store.GetAllInTournament(c.Request.Context(), entities.TypeParticipant, tid)
		if err != nil {
			writeError(c, err)
			return
		}

		entries := make([]models.ParticipantListEntry, 0, len(all))
		for _, e := range all {
			p := e.(*entities.Participant)
			name := p.Name
			if p.IsAnonymous {
				name = ""
			}
			entry := models.ParticipantListEntry{
				ID:       p.UUID,
				Name:     name,
				RoleKind: string(p.RoleKind),
			}
			if p.Speaker != nil && p.Speaker.TeamID != nil {
				entry.TeamID = p.Speaker.TeamID
			}
			entries = append(entries, entry)
		}

		c.JSON(http.StatusOK, models.TournamentParticipantsResponse{
			TournamentID: tid,
			Participants: entries,
		})
	}
}

// HandleIssueParticipantKey serves POST /participant/{pid}/key
// (organizer-gated): mints a fresh registration key for a participant
// and returns the combined secret their invitation should carry. The
// key rotation flows through the usual save-and-log pipe, so connected
// clients pick it up on their next sync.
func HandleIssueParticipantKey(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := uuid.Parse(c.Param("pid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
			return
		}

		e, err := d.Store.Get(ctx, entities.TypeParticipant, id)
		if err != nil {
			writeError(c, err)
			return
		}
		participant := e.(*entities.Participant)

		key, err := utils.NewRegistrationKey()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mint registration key"})
			return
		}
		participant.RegistrationKey = key

		group := changelog.NewEntityGroup()
		if err := group.Add(ctx, d.Store, participant, false); err != nil {
			writeError(c, err)
			return
		}
		if err := group.SaveAllAndLog(ctx, d.Store, d.Log, time.Now().UTC()); err != nil {
			writeError(c, err)
			return
		}
		notifyViews(ctx, d, group)

		c.JSON(http.StatusOK, gin.H{
			"participant_id": participant.UUID.String(),
			"secret":         utils.EncodeParticipantSecret(participant.UUID, key),
		})
	}
}

func toParticipantView(p *entities.Participant) models.ParticipantView {
	view := models.ParticipantView{
		ID:           p.UUID,
		TournamentID: p.TournamentID,
		Name:         p.Name,
		RoleKind:     string(p.RoleKind),
		IsAnonymous:  p.IsAnonymous,
		Institutions: []string{},
	}

	if p.Adjudicator != nil {
		view.ChairSkill = p.Adjudicator.ChairSkill
		view.PanelSkill = p.Adjudicator.PanelSkill
		view.UnavailableRounds = p.Adjudicator.UnavailableRounds
	}
	if p.Speaker != nil && p.Speaker.TeamID != nil {
		view.TeamID = p.Speaker.TeamID
	}
	for _, inst := range p.Institutions {
		view.Institutions = append(view.Institutions, inst.InstitutionID.String())
	}

	return view
}
