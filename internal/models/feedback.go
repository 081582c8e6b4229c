// internal/models/feedback.go
// Feedback submission wire models for the
// /feedback/debate/{did}/for/{target}/from/{source} surface.

package models

import "github.com/google/uuid"

// FeedbackAnswerRequest is one answered question within a submission.
type FeedbackAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
	Bool       *bool     `json:"bool,omitempty"`
	Int        *int      `json:"int,omitempty"`
	Text       *string   `json:"text,omitempty"`
}

// FeedbackSubmissionRequest is the body of POST
// .../feedback/debate/{did}/for/{target}/from/{source}.
type FeedbackSubmissionRequest struct {
	Answers []FeedbackAnswerRequest `json:"answers"`
}

// FeedbackSubmissionResponse echoes the stored response id.
type FeedbackSubmissionResponse struct {
	ResponseID uuid.UUID `json:"response_id"`
}

// FeedbackObligationView is one row of the obligation matrix GET
// returns: who the caller still owes feedback to about this debate.
type FeedbackObligationView struct {
	DebateID   uuid.UUID  `json:"debate_id"`
	TargetID   uuid.UUID  `json:"target_id"`
	SourceRole string     `json:"source_role"`
	TargetRole string     `json:"target_role"`
	Submitted  bool       `json:"submitted"`
	ResponseID *uuid.UUID `json:"response_id,omitempty"`
}
