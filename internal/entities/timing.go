package entities

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BallotSpeechTiming records the chair-recorded timing state for one
// speech slot on a ballot. One row exists per (ballot, role,
// position).
type BallotSpeechTiming struct {
	UUID           uuid.UUID  `json:"uuid"`
	SpeechBallotID uuid.UUID  `json:"speech_ballot_id"`
	SpeechRole     SpeechRole `json:"speech_role"`
	SpeechPosition int        `json:"speech_position"`

	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	ResponseStart *time.Time `json:"response_start,omitempty"`
	ResponseEnd   *time.Time `json:"response_end,omitempty"`

	PauseMs         int64 `json:"pause_ms"`
	ResponsePauseMs int64 `json:"response_pause_ms"`
}

func (t *BallotSpeechTiming) EntityType() EntityType { return TypeBallotSpeechTiming }
func (t *BallotSpeechTiming) EntityID() uuid.UUID    { return t.UUID }
func (t *BallotSpeechTiming) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	ballot, err := s.Get(ctx, TypeBallot, t.SpeechBallotID)
	if err != nil {
		return uuid.Nil, err
	}
	return ballot.(*Ballot).ResolveTournamentID(ctx, s)
}
