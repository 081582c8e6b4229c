// internal/models/debate.go
// Debate timing and state wire models, grounded on open_tab_server's
// debate.rs: a speech's protected-time segments, its recorded
// start/end, and the single debate-level state transition currently
// exposed (non-aligned motion release).

package models

import (
	"time"

	"github.com/google/uuid"
)

// SegmentType classifies a timing segment within a speech.
type SegmentType string

const (
	SegmentProtected SegmentType = "protected"
	SegmentNormal    SegmentType = "normal"
	SegmentGrace     SegmentType = "grace"
)

// RingType names the bell pattern marking the end of a segment.
type RingType string

const (
	RingSingle    RingType = "single"
	RingDouble    RingType = "double"
	RingPermanent RingType = "permanent"
)

// TimingSegment is one protected/normal/grace interval within a speech's
// target length.
type TimingSegment struct {
	DurationSeconds int         `json:"duration_seconds"`
	EndRing         RingType    `json:"end_ring"`
	SegmentType     SegmentType `json:"segment_type"`
}

// SpeechTimingInfo is the rendered timing state of one speech (or, for
// non-aligned speeches, its floor response) within a debate's timing
// view.
type SpeechTimingInfo struct {
	Role                string          `json:"role"`
	Position            int             `json:"position"`
	Start               *time.Time      `json:"start,omitempty"`
	End                 *time.Time      `json:"end,omitempty"`
	TargetLengthSeconds int             `json:"target_length_seconds"`
	Segments            []TimingSegment `json:"segments"`
	IsResponse          bool            `json:"is_response"`
	PauseMilliseconds   int             `json:"pause_milliseconds"`
}

// DebateTimingResponse is the payload for GET /debate/{did}/timing.
type DebateTimingResponse struct {
	Speeches              []SpeechTimingInfo `json:"speeches"`
	ParticipantMayControl bool               `json:"participant_may_control"`
}

// DebateTimingUpdateRequest is the payload for PATCH
// /debate/{did}/timing: identifies a speech by (role, position) and
// carries the timing fields to overwrite. A nil pointer leaves the
// corresponding field untouched.
type DebateTimingUpdateRequest struct {
	SpeechRole                string     `json:"speech_role" binding:"required"`
	SpeechPosition            int        `json:"speech_position"`
	Start                     *time.Time `json:"start"`
	End                       *time.Time `json:"end"`
	ResponseStart             *time.Time `json:"response_start"`
	ResponseEnd               *time.Time `json:"response_end"`
	PauseMilliseconds         *int       `json:"pause_milliseconds"`
	ResponsePauseMilliseconds *int       `json:"response_pause_milliseconds"`
}

// DebateStateUpdateRequest is the payload for POST /debate/{did}/state.
// State is a discriminator; today only non-aligned motion release is
// exposed, matching the single variant open_tab_server's
// UpdateDebateStateRequest carries.
type DebateStateUpdateRequest struct {
	State   string `json:"state" binding:"required"`
	Release bool   `json:"release"`
}

// DebateParticipantsResponse names who is seated in a debate, for
// clients that only hold a debate id.
type DebateParticipantsResponse struct {
	DebateID   uuid.UUID   `json:"debate_id"`
	Government *uuid.UUID  `json:"government_team_id,omitempty"`
	Opposition *uuid.UUID  `json:"opposition_team_id,omitempty"`
	Chair      *uuid.UUID  `json:"chair_id,omitempty"`
	Wings      []uuid.UUID `json:"wing_ids,omitempty"`
}
