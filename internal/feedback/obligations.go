// Package feedback derives who owes feedback to whom after a debate,
// and validates submitted responses against their question's
// configuration.
package feedback

import (
	"fmt"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// BallotContext is the subset of a completed ballot the obligation
// matrix is generated from.
type BallotContext struct {
	DebateID   uuid.UUID
	Chair      *uuid.UUID
	Wings      []uuid.UUID
	President  *uuid.UUID
	GovTeamID  uuid.UUID
	OppTeamID  uuid.UUID
	NonAligned []uuid.UUID
}

// FeedbackRequest is one obligation: source owes target feedback about
// this debate. Exactly one of SourceParticipantID/SourceTeamID is set.
type FeedbackRequest struct {
	DebateID            uuid.UUID
	TargetID            uuid.UUID
	SourceParticipantID *uuid.UUID
	SourceTeamID        *uuid.UUID
	SourceRole          entities.FeedbackSourceRole
	TargetRole          entities.FeedbackTargetRole

	// SubmittedResponseIDs is filled in by joining against stored
	// FeedbackResponses with the same (debate_id, source, target).
	SubmittedResponseIDs []uuid.UUID
}

func (r FeedbackRequest) key() (debate, target uuid.UUID, source uuid.UUID, sourceIsTeam bool) {
	if r.SourceTeamID != nil {
		return r.DebateID, r.TargetID, *r.SourceTeamID, true
	}
	return r.DebateID, r.TargetID, *r.SourceParticipantID, false
}

type endpoint struct {
	participantID *uuid.UUID
	teamID        *uuid.UUID
}

func participantEndpoint(id uuid.UUID) endpoint { return endpoint{participantID: &id} }
func teamEndpoint(id uuid.UUID) endpoint        { return endpoint{teamID: &id} }

// combinedVisibility OR-combines every form's visibility bitmap: a
// (source, target) pair is enabled if any form enables it.
func combinedVisibility(forms []*entities.FeedbackForm) map[entities.VisibilityKey]bool {
	combined := make(map[entities.VisibilityKey]bool)
	for _, f := range forms {
		for k, v := range f.Visibility {
			if v {
				combined[k] = true
			}
		}
	}
	return combined
}

func sourceEndpoints(b BallotContext, role entities.FeedbackSourceRole) []endpoint {
	switch role {
	case entities.SourceChair:
		if b.Chair == nil {
			return nil
		}
		return []endpoint{participantEndpoint(*b.Chair)}
	case entities.SourceWing:
		out := make([]endpoint, len(b.Wings))
		for i, w := range b.Wings {
			out[i] = participantEndpoint(w)
		}
		return out
	case entities.SourcePresident:
		if b.President == nil {
			return nil
		}
		return []endpoint{participantEndpoint(*b.President)}
	case entities.SourceTeam:
		return []endpoint{teamEndpoint(b.GovTeamID), teamEndpoint(b.OppTeamID)}
	case entities.SourceNonAligned:
		out := make([]endpoint, len(b.NonAligned))
		for i, na := range b.NonAligned {
			out[i] = participantEndpoint(na)
		}
		return out
	default:
		return nil
	}
}

// targetEndpoints mirrors sourceEndpoints but only ever returns
// participant targets: FeedbackTargetRole never names a team.
func targetEndpoints(b BallotContext, role entities.FeedbackTargetRole) []uuid.UUID {
	switch role {
	case entities.TargetChair:
		if b.Chair == nil {
			return nil
		}
		return []uuid.UUID{*b.Chair}
	case entities.TargetWing:
		return append([]uuid.UUID(nil), b.Wings...)
	case entities.TargetPresident:
		if b.President == nil {
			return nil
		}
		return []uuid.UUID{*b.President}
	default:
		return nil
	}
}

// DeriveObligations builds the full feedback request matrix for one
// set of ballots, given the tournament's forms (only their combined
// visibility matters here).
func DeriveObligations(forms []*entities.FeedbackForm, ballots []BallotContext) []FeedbackRequest {
	visibility := combinedVisibility(forms)

	var out []FeedbackRequest
	for _, b := range ballots {
		for key, enabled := range visibility {
			if !enabled {
				continue
			}
			sources := sourceEndpoints(b, key.Source)
			targets := targetEndpoints(b, key.Target)
			for _, src := range sources {
				for _, target := range targets {
					if src.participantID != nil && *src.participantID == target {
						continue // a wing (or chair) never owes themselves feedback
					}
					req := FeedbackRequest{
						DebateID:            b.DebateID,
						TargetID:            target,
						SourceParticipantID: src.participantID,
						SourceTeamID:        src.teamID,
						SourceRole:          key.Source,
						TargetRole:          key.Target,
					}
					out = append(out, req)
				}
			}
		}
	}
	return out
}

// JoinResponses fills in SubmittedResponseIDs for each request by
// matching stored responses on (debate_id, source, target).
func JoinResponses(requests []FeedbackRequest, responses []*entities.FeedbackResponse) []FeedbackRequest {
	type responseKey struct {
		debate, target, source uuid.UUID
		sourceIsTeam           bool
	}
	byKey := make(map[responseKey][]uuid.UUID)
	for _, r := range responses {
		isParticipant, isTeam := r.SourceKind()
		var source uuid.UUID
		if isParticipant {
			source = *r.SourceParticipantID
		} else if isTeam {
			source = *r.SourceTeamID
		}
		k := responseKey{debate: r.SourceDebateID, target: r.TargetParticipantID, source: source, sourceIsTeam: isTeam}
		byKey[k] = append(byKey[k], r.UUID)
	}

	out := make([]FeedbackRequest, len(requests))
	for i, req := range requests {
		debate, target, source, isTeam := req.key()
		k := responseKey{debate: debate, target: target, source: source, sourceIsTeam: isTeam}
		req.SubmittedResponseIDs = byKey[k]
		out[i] = req
	}
	return out
}

// ValidateResponse checks one answered value against its question's
// configuration: kind must match, required questions must be
// answered, text must not exceed max_length, and an empty text answer
// is treated as absent (so it fails a required-question check but is
// not itself an error if the question is optional).
func ValidateResponse(q *entities.FeedbackQuestion, value *entities.FeedbackAnswerValue) error {
	if value == nil || (value.Kind == entities.AnswerText && value.Text == "") {
		if q.IsRequired {
			return entities.BallotParseError("MissingRequiredAnswer", "question %q requires an answer", q.ShortName)
		}
		return nil
	}

	switch q.ConfigKind {
	case entities.QuestionRange:
		if value.Kind != entities.AnswerInt {
			return entities.BallotParseError("AnswerKindMismatch", "question %q expects a range answer", q.ShortName)
		}
		if q.Range != nil && (value.Int < q.Range.Min || value.Int > q.Range.Max) {
			return entities.BallotParseError("AnswerOutOfRange", "question %q answer %d outside [%d,%d]", q.ShortName, value.Int, q.Range.Min, q.Range.Max)
		}
	case entities.QuestionText:
		if value.Kind != entities.AnswerText {
			return entities.BallotParseError("AnswerKindMismatch", "question %q expects a text answer", q.ShortName)
		}
		if q.Text != nil && len(value.Text) > q.Text.MaxLength {
			return entities.BallotParseError("AnswerTooLong", "question %q answer exceeds max length %d", q.ShortName, q.Text.MaxLength)
		}
	case entities.QuestionYesNo:
		if value.Kind != entities.AnswerBool {
			return entities.BallotParseError("AnswerKindMismatch", "question %q expects a yes/no answer", q.ShortName)
		}
	default:
		return fmt.Errorf("unrecognized question config kind %q", q.ConfigKind)
	}
	return nil
}

// ValidateResponses validates every answered value against its known
// question, rejecting answers to questions the form does not name.
func ValidateResponses(questions map[uuid.UUID]*entities.FeedbackQuestion, values map[uuid.UUID]entities.FeedbackAnswerValue) error {
	for qid, value := range values {
		q, ok := questions[qid]
		if !ok {
			return entities.BallotParseError("UnknownQuestion", "response answers unknown question %s", qid)
		}
		v := value
		if err := ValidateResponse(q, &v); err != nil {
			return err
		}
	}
	for qid, q := range questions {
		if q.IsRequired {
			if _, answered := values[qid]; !answered {
				return entities.BallotParseError("MissingRequiredAnswer", "question %q requires an answer", q.ShortName)
			}
		}
	}
	return nil
}
