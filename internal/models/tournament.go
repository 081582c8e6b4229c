// internal/models/tournament.go
// Tournament-scoped wire models shared across the participant and
// sync-protocol surfaces.

package models

import "github.com/google/uuid"

// TournamentParticipantsResponse is the payload for GET
// /tournament/{tid}/participants.
type TournamentParticipantsResponse struct {
	TournamentID uuid.UUID              `json:"tournament_id"`
	Participants []ParticipantListEntry `json:"participants"`
}
