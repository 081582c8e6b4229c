package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// FeedbackSourceRole and FeedbackTargetRole enumerate who can submit,
// and who can be the subject of, a feedback form.
type FeedbackSourceRole string
type FeedbackTargetRole string

const (
	SourceChair      FeedbackSourceRole = "chair"
	SourceWing       FeedbackSourceRole = "wing"
	SourcePresident  FeedbackSourceRole = "president"
	SourceTeam       FeedbackSourceRole = "team"
	SourceNonAligned FeedbackSourceRole = "non_aligned"

	TargetChair     FeedbackTargetRole = "chair"
	TargetWing      FeedbackTargetRole = "wing"
	TargetPresident FeedbackTargetRole = "president"
)

// VisibilityKey indexes FeedbackForm.Visibility.
type VisibilityKey struct {
	Source FeedbackSourceRole
	Target FeedbackTargetRole
}

// FeedbackForm names which (source_role, target_role) pairs may submit
// feedback about one another, and the ordered questions asked.
type FeedbackForm struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`

	Visibility  map[VisibilityKey]bool `json:"-"`
	QuestionIDs []uuid.UUID            `json:"question_ids"`
}

func (f *FeedbackForm) EntityType() EntityType { return TypeFeedbackForm }
func (f *FeedbackForm) EntityID() uuid.UUID    { return f.UUID }
func (f *FeedbackForm) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return f.TournamentID, nil
}

// IsVisible reports whether source may give target feedback under this
// form.
func (f *FeedbackForm) IsVisible(source FeedbackSourceRole, target FeedbackTargetRole) bool {
	return f.Visibility[VisibilityKey{Source: source, Target: target}]
}

// visibilityPair is the wire shape of one enabled (source, target)
// entry; the struct-keyed Visibility map cannot serve as a JSON object
// key directly.
type visibilityPair struct {
	Source FeedbackSourceRole `json:"source"`
	Target FeedbackTargetRole `json:"target"`
}

// feedbackFormAlias breaks the MarshalJSON recursion while reusing the
// plain field tags.
type feedbackFormAlias FeedbackForm

type feedbackFormWire struct {
	*feedbackFormAlias
	Visibility []visibilityPair `json:"visibility"`
}

func (f *FeedbackForm) MarshalJSON() ([]byte, error) {
	pairs := make([]visibilityPair, 0, len(f.Visibility))
	for k, enabled := range f.Visibility {
		if enabled {
			pairs = append(pairs, visibilityPair{Source: k.Source, Target: k.Target})
		}
	}
	// Stable order so identical forms serialize identically.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})
	return json.Marshal(feedbackFormWire{feedbackFormAlias: (*feedbackFormAlias)(f), Visibility: pairs})
}

func (f *FeedbackForm) UnmarshalJSON(data []byte) error {
	var wire feedbackFormWire
	wire.feedbackFormAlias = (*feedbackFormAlias)(f)
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Visibility = make(map[VisibilityKey]bool, len(wire.Visibility))
	for _, p := range wire.Visibility {
		f.Visibility[VisibilityKey{Source: p.Source, Target: p.Target}] = true
	}
	return nil
}

// QuestionConfigKind discriminates FeedbackQuestion.Config's shape.
type QuestionConfigKind string

const (
	QuestionRange QuestionConfigKind = "range"
	QuestionText  QuestionConfigKind = "text"
	QuestionYesNo QuestionConfigKind = "yes_no"
)

// RangeOrientation indicates whether a higher numeric answer is a
// better or worse rating, for display/aggregation purposes.
type RangeOrientation string

const (
	OrientationHigherIsBetter RangeOrientation = "higher_is_better"
	OrientationLowerIsBetter  RangeOrientation = "lower_is_better"
)

// RangeQuestionConfig configures a numeric-range feedback question.
type RangeQuestionConfig struct {
	Min         int              `json:"min"`
	Max         int              `json:"max"`
	Orientation RangeOrientation `json:"orientation"`
	Labels      map[int]string   `json:"labels,omitempty"`
}

// TextQuestionConfig configures a free-text feedback question.
type TextQuestionConfig struct {
	MaxLength int `json:"max_length"`
}

// FeedbackQuestion is one question that can appear on a FeedbackForm.
type FeedbackQuestion struct {
	UUID         uuid.UUID `json:"uuid"`
	TournamentID uuid.UUID `json:"tournament_id"`
	ShortName    string    `json:"short_name"`
	FullName     string    `json:"full_name"`
	Description  string    `json:"description"`
	IsRequired   bool      `json:"is_required"`

	ConfigKind QuestionConfigKind   `json:"config_kind"`
	Range      *RangeQuestionConfig `json:"range,omitempty"`
	Text       *TextQuestionConfig  `json:"text,omitempty"`
}

func (q *FeedbackQuestion) EntityType() EntityType { return TypeFeedbackQuestion }
func (q *FeedbackQuestion) EntityID() uuid.UUID    { return q.UUID }
func (q *FeedbackQuestion) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	return q.TournamentID, nil
}

// AnswerValueKind discriminates FeedbackAnswerValue's shape to match
// the question kind it answers.
type AnswerValueKind string

const (
	AnswerBool AnswerValueKind = "bool"
	AnswerInt  AnswerValueKind = "int"
	AnswerText AnswerValueKind = "string"
)

// FeedbackAnswerValue is a tagged union over the three answer shapes a
// response value can take, matching exactly one question kind.
type FeedbackAnswerValue struct {
	Kind AnswerValueKind
	Bool bool
	Int  int
	Text string
}

// answerValueWire carries only the populated arm of the union, tagged
// by kind.
type answerValueWire struct {
	Kind AnswerValueKind `json:"kind"`
	Bool *bool           `json:"bool,omitempty"`
	Int  *int            `json:"int,omitempty"`
	Text *string         `json:"string,omitempty"`
}

func (v FeedbackAnswerValue) MarshalJSON() ([]byte, error) {
	wire := answerValueWire{Kind: v.Kind}
	switch v.Kind {
	case AnswerBool:
		b := v.Bool
		wire.Bool = &b
	case AnswerInt:
		i := v.Int
		wire.Int = &i
	case AnswerText:
		s := v.Text
		wire.Text = &s
	default:
		return nil, fmt.Errorf("unknown answer value kind %q", v.Kind)
	}
	return json.Marshal(wire)
}

func (v *FeedbackAnswerValue) UnmarshalJSON(data []byte) error {
	var wire answerValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	v.Kind = wire.Kind
	switch wire.Kind {
	case AnswerBool:
		if wire.Bool != nil {
			v.Bool = *wire.Bool
		}
	case AnswerInt:
		if wire.Int != nil {
			v.Int = *wire.Int
		}
	case AnswerText:
		if wire.Text != nil {
			v.Text = *wire.Text
		}
	default:
		return fmt.Errorf("unknown answer value kind %q", wire.Kind)
	}
	return nil
}

// FeedbackResponse records one participant's answers about another
// participant, for one debate. Exactly one of SourceParticipantID and
// SourceTeamID is set, matching who submitted it.
type FeedbackResponse struct {
	UUID                uuid.UUID  `json:"uuid"`
	AuthorParticipantID uuid.UUID  `json:"author_participant_id"`
	TargetParticipantID uuid.UUID  `json:"target_participant_id"`
	SourceDebateID      uuid.UUID  `json:"source_debate_id"`
	SourceParticipantID *uuid.UUID `json:"source_participant_id,omitempty"`
	SourceTeamID        *uuid.UUID `json:"source_team_id,omitempty"`

	Values map[uuid.UUID]FeedbackAnswerValue `json:"values"`
}

func (r *FeedbackResponse) EntityType() EntityType { return TypeFeedbackResponse }
func (r *FeedbackResponse) EntityID() uuid.UUID    { return r.UUID }
func (r *FeedbackResponse) ResolveTournamentID(ctx context.Context, s Store) (uuid.UUID, error) {
	debate, err := s.Get(ctx, TypeDebate, r.SourceDebateID)
	if err != nil {
		return uuid.Nil, err
	}
	return debate.(*TournamentDebate).ResolveTournamentID(ctx, s)
}

// SourceKind reports which of SourceParticipantID/SourceTeamID is set.
// It does not check the XOR invariant: both results may be true, or
// both false.
func (r *FeedbackResponse) SourceKind() (isParticipant bool, isTeam bool) {
	return r.SourceParticipantID != nil, r.SourceTeamID != nil
}
