// internal/models/organizer.go
// Organizer account and authentication wire models

package models

import "time"

// Organizer represents a tournament-management account: the person who
// owns/administers a tournament, as distinct from participant
// registration-key auth.
type Organizer struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	PasswordHash  string      `json:"-"`
	FullName      string      `json:"full_name"`
	Role          AccountRole `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// AccountRole defines organizer access levels.
type AccountRole string

const (
	RoleOrganizer AccountRole = "organizer"
	RoleAdmin     AccountRole = "admin"
)

// TokenPair represents the JWT access and refresh tokens returned by login.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginRequest represents organizer credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterRequest represents a new organizer account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ParticipantClaimRequest is the registration-key redemption a newly
// invited participant submits to obtain their own bearer token.
type ParticipantClaimRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// ParticipantClaimResponse carries the bearer token the participant
// should use for subsequent participant-facing requests.
type ParticipantClaimResponse struct {
	ParticipantID string `json:"participant_id"`
	TournamentID  string `json:"tournament_id"`
	Token         string `json:"token"`
}
