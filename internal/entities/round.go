package entities

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DrawType names the algorithm a round's debates were (or should be)
// generated by; set once a draw has been produced for the round.
type DrawType string

const (
	DrawPreliminary DrawType = "preliminary"
	DrawFold        DrawType = "fold"
)

// TournamentRound is one round of debating within a tournament. The
// release-time fields gate progressive disclosure to participants and
// are required to be non-decreasing in the order they are declared
// here when set: draw, team motion, full motion, debate start, round
// close, feedback.
type TournamentRound struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Index        int       `json:"index"`
	IsSilent     bool      `json:"is_silent"`

	DrawReleaseTime       *time.Time `json:"draw_release_time,omitempty"`
	TeamMotionReleaseTime *time.Time `json:"team_motion_release_time,omitempty"`
	FullMotionReleaseTime *time.Time `json:"full_motion_release_time,omitempty"`
	DebateStartTime       *time.Time `json:"debate_start_time,omitempty"`
	RoundCloseTime        *time.Time `json:"round_close_time,omitempty"`
	FeedbackReleaseTime   *time.Time `json:"feedback_release_time,omitempty"`

	Motion    *string   `json:"motion,omitempty"`
	InfoSlide *string   `json:"info_slide,omitempty"`
	DrawType  *DrawType `json:"draw_type,omitempty"`
}

func (r *TournamentRound) EntityType() EntityType { return TypeRound }
func (r *TournamentRound) EntityID() uuid.UUID    { return r.UUID }
func (r *TournamentRound) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return r.TournamentID, nil
}

// ReleaseTimesOrdered validates the non-decreasing constraint on the
// round's release times, skipping any that are unset.
func (r *TournamentRound) ReleaseTimesOrdered() bool {
	times := []*time.Time{
		r.DrawReleaseTime,
		r.TeamMotionReleaseTime,
		r.FullMotionReleaseTime,
		r.DebateStartTime,
		r.RoundCloseTime,
		r.FeedbackReleaseTime,
	}
	var last *time.Time
	for _, t := range times {
		if t == nil {
			continue
		}
		if last != nil && t.Before(*last) {
			return false
		}
		last = t
	}
	return true
}

// TournamentDebate is one room/ballot pairing within a round.
// (round_id, index) is unique.
type TournamentDebate struct {
	UUID                         uuid.UUID  `json:"uuid"`
	RoundID                      uuid.UUID  `json:"round_id"`
	Index                        int        `json:"index"`
	BallotID                     uuid.UUID  `json:"ballot_id"`
	VenueID                      *uuid.UUID `json:"venue_id,omitempty"`
	IsMotionReleasedToNonAligned bool       `json:"is_motion_released_to_non_aligned"`
}

func (d *TournamentDebate) EntityType() EntityType { return TypeDebate }
func (d *TournamentDebate) EntityID() uuid.UUID    { return d.UUID }
func (d *TournamentDebate) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	round, err := s.Get(ctx, TypeRound, d.RoundID)
	if err != nil {
		return uuid.Nil, err
	}
	return round.(*TournamentRound).TournamentID, nil
}
