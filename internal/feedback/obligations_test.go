package feedback

import (
	"testing"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

func formWithVisibility(pairs ...entities.VisibilityKey) *entities.FeedbackForm {
	vis := make(map[entities.VisibilityKey]bool, len(pairs))
	for _, p := range pairs {
		vis[p] = true
	}
	return &entities.FeedbackForm{UUID: entities.NewUUID(), Visibility: vis}
}

func TestDeriveObligationsChairToWing(t *testing.T) {
	chair := uuid.New()
	wing1, wing2 := uuid.New(), uuid.New()
	ballot := BallotContext{
		DebateID: uuid.New(),
		Chair:    &chair,
		Wings:    []uuid.UUID{wing1, wing2},
	}
	forms := []*entities.FeedbackForm{
		formWithVisibility(entities.VisibilityKey{Source: entities.SourceChair, Target: entities.TargetWing}),
	}
	reqs := DeriveObligations(forms, []BallotContext{ballot})
	if len(reqs) != 2 {
		t.Fatalf("expected 2 chair->wing requests, got %d", len(reqs))
	}
	for _, r := range reqs {
		if r.SourceParticipantID == nil || *r.SourceParticipantID != chair {
			t.Errorf("expected source to be chair")
		}
	}
}

func TestDeriveObligationsWingToWingExcludesSelf(t *testing.T) {
	wing1, wing2 := uuid.New(), uuid.New()
	ballot := BallotContext{
		DebateID: uuid.New(),
		Wings:    []uuid.UUID{wing1, wing2},
	}
	forms := []*entities.FeedbackForm{
		formWithVisibility(entities.VisibilityKey{Source: entities.SourceWing, Target: entities.TargetWing}),
	}
	reqs := DeriveObligations(forms, []BallotContext{ballot})
	if len(reqs) != 2 {
		t.Fatalf("expected 2 wing->wing requests (each direction once), got %d", len(reqs))
	}
	for _, r := range reqs {
		if r.SourceParticipantID != nil && *r.SourceParticipantID == r.TargetID {
			t.Errorf("a wing should never owe itself feedback")
		}
	}
}

func TestDeriveObligationsTeamToChairUsesTeamSource(t *testing.T) {
	chair := uuid.New()
	gov, opp := uuid.New(), uuid.New()
	ballot := BallotContext{
		DebateID:  uuid.New(),
		Chair:     &chair,
		GovTeamID: gov,
		OppTeamID: opp,
	}
	forms := []*entities.FeedbackForm{
		formWithVisibility(entities.VisibilityKey{Source: entities.SourceTeam, Target: entities.TargetChair}),
	}
	reqs := DeriveObligations(forms, []BallotContext{ballot})
	if len(reqs) != 2 {
		t.Fatalf("expected 2 team->chair requests (gov and opp), got %d", len(reqs))
	}
	for _, r := range reqs {
		if r.SourceTeamID == nil {
			t.Errorf("expected team source, got participant source")
		}
	}
}

func TestDeriveObligationsPresidentToChairAndWings(t *testing.T) {
	chair, wing := uuid.New(), uuid.New()
	president := uuid.New()
	ballot := BallotContext{
		DebateID:  uuid.New(),
		Chair:     &chair,
		Wings:     []uuid.UUID{wing},
		President: &president,
	}
	forms := []*entities.FeedbackForm{
		formWithVisibility(
			entities.VisibilityKey{Source: entities.SourcePresident, Target: entities.TargetChair},
			entities.VisibilityKey{Source: entities.SourcePresident, Target: entities.TargetWing},
		),
	}
	reqs := DeriveObligations(forms, []BallotContext{ballot})
	if len(reqs) != 2 {
		t.Fatalf("expected president->chair and president->wing requests, got %d", len(reqs))
	}
	for _, r := range reqs {
		if r.SourceParticipantID == nil || *r.SourceParticipantID != president {
			t.Errorf("expected president as source, got %+v", r)
		}
		if r.TargetID != chair && r.TargetID != wing {
			t.Errorf("unexpected target %s", r.TargetID)
		}
	}
}

func TestDeriveObligationsPresidentSourceSkippedWithoutPresident(t *testing.T) {
	chair := uuid.New()
	ballot := BallotContext{
		DebateID: uuid.New(),
		Chair:    &chair,
	}
	forms := []*entities.FeedbackForm{
		formWithVisibility(entities.VisibilityKey{Source: entities.SourcePresident, Target: entities.TargetChair}),
	}
	if reqs := DeriveObligations(forms, []BallotContext{ballot}); len(reqs) != 0 {
		t.Fatalf("a ballot without a president owes no president-sourced feedback, got %d", len(reqs))
	}
}

func TestValidateResponseRejectsOutOfRange(t *testing.T) {
	q := &entities.FeedbackQuestion{
		ShortName:  "skill",
		ConfigKind: entities.QuestionRange,
		Range:      &entities.RangeQuestionConfig{Min: 0, Max: 100},
	}
	v := entities.FeedbackAnswerValue{Kind: entities.AnswerInt, Int: 150}
	if err := ValidateResponse(q, &v); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestValidateResponseTreatsEmptyTextAsAbsent(t *testing.T) {
	q := &entities.FeedbackQuestion{ShortName: "comments", ConfigKind: entities.QuestionText, IsRequired: false}
	v := entities.FeedbackAnswerValue{Kind: entities.AnswerText, Text: ""}
	if err := ValidateResponse(q, &v); err != nil {
		t.Fatalf("empty text on an optional question should be valid, got %v", err)
	}
}

func TestValidateResponseRejectsMissingRequired(t *testing.T) {
	q := &entities.FeedbackQuestion{ShortName: "comments", ConfigKind: entities.QuestionText, IsRequired: true}
	v := entities.FeedbackAnswerValue{Kind: entities.AnswerText, Text: ""}
	if err := ValidateResponse(q, &v); err == nil {
		t.Fatalf("expected missing-required error")
	}
}
