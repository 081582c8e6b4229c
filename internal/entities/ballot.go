package entities

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// SpeechRole discriminates which side of the table a speech belongs to.
type SpeechRole string

const (
	SpeechGov        SpeechRole = "gov"
	SpeechOpp        SpeechRole = "opp"
	SpeechNonAligned SpeechRole = "non_aligned"
)

// BallotSide holds one team's scores on a ballot, keyed by the
// adjudicator who awarded them. A nil Team marks a bye or an
// unassigned slot (still a legal ballot shape per the empty-ballot
// round-trip scenario).
type BallotSide struct {
	TeamID *uuid.UUID        `json:"team_id,omitempty"`
	Scores map[uuid.UUID]int `json:"scores"`
}

// Speech is one scored or opted-out speaking slot on a ballot.
// Position is in [0,3). Per position, ordering is Gov then Opp
// (reversed at position 2), with all NonAligned speeches placed
// between positions 1 and 2 — SortSpeeches below enforces that order
// for serialization.
type Speech struct {
	SpeakerID *uuid.UUID        `json:"speaker_id,omitempty"`
	Role      SpeechRole        `json:"role"`
	Position  int               `json:"position"`
	IsOptOut  bool              `json:"is_opt_out"`
	Scores    map[uuid.UUID]int `json:"scores"`
}

// Ballot records scores and panel composition for a single debate.
// Only adjudicators in Adjudicators (or the President) may carry
// scores; at most one President may be set.
type Ballot struct {
	UUID uuid.UUID `json:"uuid"`

	Government BallotSide `json:"government"`
	Opposition BallotSide `json:"opposition"`
	Speeches   []Speech   `json:"speeches"`

	Adjudicators []uuid.UUID `json:"adjudicators"` // ordered; position 0 is chair
	President    *uuid.UUID  `json:"president,omitempty"`
}

func (b *Ballot) EntityType() EntityType { return TypeBallot }
func (b *Ballot) EntityID() uuid.UUID    { return b.UUID }

// ResolveTournamentID follows the template-vs-attached distinction
// called out in the data model: a Ballot may exist independently as a
// template, or be referenced by a TournamentDebate, in which case its
// tournament is derived via the debate's round. Templates resolve to
// uuid.Nil and are excluded from tournament-scoped log batches by the
// caller.
func (b *Ballot) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	debate, ok, err := s.FindDebateByBallotID(ctx, b.UUID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, nil // unattached template ballot
	}
	return debate.ResolveTournamentID(ctx, s)
}

// Chair returns the chairing adjudicator (position 0), if any.
func (b *Ballot) Chair() (uuid.UUID, bool) {
	if len(b.Adjudicators) == 0 {
		return uuid.Nil, false
	}
	return b.Adjudicators[0], true
}

// Wings returns the non-chairing adjudicators on the panel.
func (b *Ballot) Wings() []uuid.UUID {
	if len(b.Adjudicators) <= 1 {
		return nil
	}
	return append([]uuid.UUID(nil), b.Adjudicators[1:]...)
}

// AuthorizedScorers returns the set of participant ids permitted to
// carry scores on this ballot: every panel adjudicator plus the
// president, if distinct.
func (b *Ballot) AuthorizedScorers() map[uuid.UUID]bool {
	authorized := make(map[uuid.UUID]bool, len(b.Adjudicators)+1)
	for _, a := range b.Adjudicators {
		authorized[a] = true
	}
	if b.President != nil {
		authorized[*b.President] = true
	}
	return authorized
}

// Validate checks that every score author is an authorized scorer and
// that every speech has a known role and a position in [0,2]. The
// order of Speeches is not checked; SortSpeeches produces it.
func (b *Ballot) Validate() error {
	authorized := b.AuthorizedScorers()
	for side, bs := range map[string]BallotSide{"government": b.Government, "opposition": b.Opposition} {
		for author := range bs.Scores {
			if !authorized[author] {
				return BallotParseError("unauthorized_scorer", "%s score author %s is not on the panel", side, author)
			}
		}
	}
	for i, sp := range b.Speeches {
		for author := range sp.Scores {
			if !authorized[author] {
				return BallotParseError("unauthorized_scorer", "speech %d score author %s is not on the panel", i, author)
			}
		}
		if sp.Position < 0 || sp.Position > 2 {
			return BallotParseError("invalid_position", "speech %d has position %d, want [0,2]", i, sp.Position)
		}
		switch sp.Role {
		case SpeechGov, SpeechOpp, SpeechNonAligned:
		default:
			return BallotParseError("unknown_role", "speech %d has unknown role %q", i, sp.Role)
		}
	}
	return nil
}

// SortSpeeches orders a slice of speeches into the canonical shape:
// per position, Gov then Opp (reversed at position 2), with all
// NonAligned speeches placed between positions 1 and 2.
func SortSpeeches(speeches []Speech) []Speech {
	sorted := append([]Speech(nil), speeches...)
	rank := func(s Speech) int {
		switch {
		case s.Role == SpeechNonAligned:
			return 15 + s.Position // every non-aligned speech sits between position 1 and 2's teamed speeches
		case s.Position == 2 && s.Role == SpeechOpp:
			return 2*10 + 0
		case s.Position == 2 && s.Role == SpeechGov:
			return 2*10 + 1
		case s.Role == SpeechGov:
			return s.Position*10 + 0
		case s.Role == SpeechOpp:
			return s.Position*10 + 1
		default:
			return s.Position * 10
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return rank(sorted[i]) < rank(sorted[j]) })
	return sorted
}
