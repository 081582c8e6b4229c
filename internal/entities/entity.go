// Package entities implements the typed entity model described in the
// tournament engine's core data model: every domain object owns a uuid
// identity, loads and saves through a relational Store, and carries no
// parent-pointer back references in its logical shape.
package entities

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityType discriminates the closed set of entity kinds the store
// knows how to load and save.
type EntityType string

const (
	TypeTournament         EntityType = "tournament"
	TypeInstitution        EntityType = "institution"
	TypeTeam               EntityType = "team"
	TypeParticipant        EntityType = "participant"
	TypeParticipantClash   EntityType = "participant_clash"
	TypeRound              EntityType = "round"
	TypeDebate             EntityType = "debate"
	TypeBallot             EntityType = "ballot"
	TypeVenue              EntityType = "venue"
	TypeBreak              EntityType = "break"
	TypePlanNode           EntityType = "plan_node"
	TypePlanEdge           EntityType = "plan_edge"
	TypeFeedbackForm       EntityType = "feedback_form"
	TypeFeedbackQuestion   EntityType = "feedback_question"
	TypeFeedbackResponse   EntityType = "feedback_response"
	TypeBallotSpeechTiming EntityType = "ballot_speech_timing"
)

// kindOrder fixes the processing order EntityGroup uses when it saves a
// batch of creates/updates: earlier kinds are written (and logged)
// before later ones so that foreign keys are always satisfied within a
// single transaction.
var kindOrder = map[EntityType]int{
	TypeTournament:         0,
	TypeInstitution:        1,
	TypeTeam:               2,
	TypeParticipant:        3,
	TypeParticipantClash:   4,
	TypeVenue:              5,
	TypeRound:              6,
	TypeDebate:             7,
	TypeBallot:             8,
	TypeBallotSpeechTiming: 9,
	TypeBreak:              10,
	TypePlanNode:           11,
	TypePlanEdge:           12,
	TypeFeedbackForm:       13,
	TypeFeedbackQuestion:   14,
	TypeFeedbackResponse:   15,
}

// KindOrder returns the fixed write order for a kind, used by the
// changelog package to sort a batch before saving/logging it.
func KindOrder(t EntityType) int {
	if v, ok := kindOrder[t]; ok {
		return v
	}
	return len(kindOrder)
}

// Entity is implemented by every typed domain object in the store.
type Entity interface {
	EntityType() EntityType
	EntityID() uuid.UUID
	// ResolveTournamentID returns the tournament this entity belongs to,
	// following relations through the store when the entity does not
	// directly carry a tournament_id column (e.g. a template Ballot).
	ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error)
}

// NewUUID mints a fresh random identity for a new entity.
func NewUUID() uuid.UUID {
	return uuid.New()
}

// Timestamps holds creation/update times in the shape the teacher's
// models.Tournament and models.Match use. No entity type in this
// package embeds it.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
