// internal/models/participant.go
// Participant-facing wire models: what a speaker or adjudicator sees
// of their own registration, distinct from the organizer-facing
// entities.Participant storage shape.

package models

import "github.com/google/uuid"

// ParticipantView is the read model served by GET /participant/{pid}.
type ParticipantView struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
	RoleKind     string    `json:"role_kind"`

	TeamID *uuid.UUID `json:"team_id,omitempty"`

	ChairSkill        int         `json:"chair_skill,omitempty"`
	PanelSkill        int         `json:"panel_skill,omitempty"`
	UnavailableRounds []uuid.UUID `json:"unavailable_rounds,omitempty"`

	Institutions []string `json:"institutions"`
	IsAnonymous  bool     `json:"is_anonymous"`
}

// ParticipantListEntry is one row of GET /tournament/{tid}/participants.
type ParticipantListEntry struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	RoleKind string     `json:"role_kind"`
	TeamID   *uuid.UUID `json:"team_id,omitempty"`
}
