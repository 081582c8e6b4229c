package entities

import (
	"context"

	"github.com/google/uuid"
)

// ParticipantRoleKind discriminates the two shapes a Participant's role
// can take; exactly one of AdjudicatorRole/SpeakerRole on Participant is
// populated according to this tag.
type ParticipantRoleKind string

const (
	RoleAdjudicator ParticipantRoleKind = "adjudicator"
	RoleSpeaker     ParticipantRoleKind = "speaker"
)

// AdjudicatorRole carries the skill ratings and unavailability an
// adjudicator participant is assigned by.
type AdjudicatorRole struct {
	ChairSkill        int         `json:"chair_skill"`
	PanelSkill        int         `json:"panel_skill"`
	UnavailableRounds []uuid.UUID `json:"unavailable_rounds"`
}

// SpeakerRole carries the team a speaker belongs to, when any (a
// speaker may exist unattached and only ever appear as a non-aligned
// seat).
type SpeakerRole struct {
	TeamID *uuid.UUID `json:"team_id,omitempty"`
}

// Participant is a person taking part in the tournament, either as an
// adjudicator or as a speaker. tournament_id scopes the entity.
type Participant struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`

	RoleKind    ParticipantRoleKind `json:"role_kind"`
	Adjudicator *AdjudicatorRole    `json:"adjudicator,omitempty"`
	Speaker     *SpeakerRole        `json:"speaker,omitempty"`

	Institutions    []InstitutionAffiliation `json:"institutions"`
	RegistrationKey []byte                   `json:"registration_key,omitempty"`
	IsAnonymous     bool                     `json:"is_anonymous"`
}

func (p *Participant) EntityType() EntityType { return TypeParticipant }
func (p *Participant) EntityID() uuid.UUID    { return p.UUID }
func (p *Participant) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return p.TournamentID, nil
}

// IsAdjudicator reports whether this participant can sit on a panel.
func (p *Participant) IsAdjudicator() bool {
	return p.RoleKind == RoleAdjudicator && p.Adjudicator != nil
}

// IsUnavailableForRound reports whether the adjudicator declared
// themselves unavailable for a given round.
func (p *Participant) IsUnavailableForRound(roundID uuid.UUID) bool {
	if p.Adjudicator == nil {
		return false
	}
	for _, r := range p.Adjudicator.UnavailableRounds {
		if r == roundID {
			return true
		}
	}
	return false
}

// ParticipantClash declares a one-directional clash severity between
// two participants. Effective severity between a pair is the max over
// declarations in both directions (see draw.NewClashMap, which the
// draw and adjudication engines share).
type ParticipantClash struct {
	UUID                   uuid.UUID `json:"uuid"`
	DeclaringParticipantID uuid.UUID `json:"declaring_participant_id"`
	TargetParticipantID    uuid.UUID `json:"target_participant_id"`
	ClashSeverity          int       `json:"clash_severity"` // [0,1000]
	IsUserDeclared         bool      `json:"is_user_declared"`
}

func (c *ParticipantClash) EntityType() EntityType { return TypeParticipantClash }
func (c *ParticipantClash) EntityID() uuid.UUID    { return c.UUID }
func (c *ParticipantClash) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	p, err := s.Get(ctx, TypeParticipant, c.DeclaringParticipantID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.(*Participant).TournamentID, nil
}
