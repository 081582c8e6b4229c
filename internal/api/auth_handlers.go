// internal/api/auth_handlers.go
// Organizer account auth (register/login/refresh, bcrypt+JWT) and
// participant registration-key redemption, grounded on
// open_tab_server's auth.rs: organizer accounts are a thin table
// outside the tournament sync domain, while a participant "claims"
// their seat by redeeming the base64 {participant_id, key_bytes}
// secret their invitation carried.

package api

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tournament-engine/internal/entities"
	"tournament-engine/internal/models"
	"tournament-engine/internal/utils"
)

// HandleOrganizerRegister creates a new organizer account.
func HandleOrganizerRegister(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
		if err := utils.ValidatePassword(req.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.Config.Auth.BCryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		id := uuid.New().String()
		now := time.Now().UTC()
		_, err = d.MySQL.ExecContext(c.Request.Context(),
			`INSERT INTO organizer_accounts (id, email, password_hash, full_name, role, email_verified, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 'organizer', FALSE, ?, ?)`,
			id, req.Email, string(hash), req.FullName, now, now,
		)
		if err != nil {
			if isDuplicateKeyErr(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register organizer"})
			return
		}

		tokens, err := issueTokenPair(c, d, id, string(models.RoleOrganizer))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"organizer_id": id, "auth": tokens})
	}
}

// HandleOrganizerLogin validates credentials and issues a token pair.
func HandleOrganizerLogin(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		var id, hash, role string
		err := d.MySQL.QueryRowContext(c.Request.Context(),
			`SELECT id, password_hash, role FROM organizer_accounts WHERE email = ?`, req.Email,
		).Scan(&id, &hash, &role)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		tokens, err := issueTokenPair(c, d, id, role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"organizer_id": id, "auth": tokens})
	}
}

// HandleRefreshToken exchanges a refresh token (looked up in Redis) for
// a fresh access token.
func HandleRefreshToken(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		subject, err := d.Redis.Get(c.Request.Context(), refreshTokenKey(req.RefreshToken)).Result()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		var role string
		if err := d.MySQL.QueryRowContext(c.Request.Context(),
			`SELECT role FROM organizer_accounts WHERE id = ?`, subject).Scan(&role); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		access, err := utils.GenerateJWT(subject, role, d.Config.Auth.JWTSecret, d.Config.Auth.JWTExpiration)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"auth": models.TokenPair{
			AccessToken:  access,
			RefreshToken: req.RefreshToken,
			ExpiresAt:    time.Now().Add(d.Config.Auth.JWTExpiration),
		}})
	}
}

// HandleClaimParticipant redeems a participant's registration secret
// and returns the bearer token they should carry on subsequent
// participant-facing requests, mirroring open_tab_server's
// register_user_handler.
func HandleClaimParticipant(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ParticipantClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}

		participantID, submittedKey, err := utils.DecodeParticipantSecret(req.Secret)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed secret"})
			return
		}

		e, err := d.Store.Get(c.Request.Context(), entities.TypeParticipant, participantID)
		if err != nil {
			writeError(c, err)
			return
		}
		participant := e.(*entities.Participant)
		if len(participant.RegistrationKey) == 0 ||
			subtle.ConstantTimeCompare(participant.RegistrationKey, submittedKey) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect key or participant id"})
			return
		}

		token := utils.EncodeParticipantSecret(participantID, submittedKey)
		c.JSON(http.StatusOK, models.ParticipantClaimResponse{
			ParticipantID: participantID.String(),
			TournamentID:  participant.TournamentID.String(),
			Token:         token,
		})
	}
}

func issueTokenPair(c *gin.Context, d *Deps, subject, role string) (models.TokenPair, error) {
	access, err := utils.GenerateJWT(subject, role, d.Config.Auth.JWTSecret, d.Config.Auth.JWTExpiration)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := utils.GenerateRefreshToken()
	if err != nil {
		return models.TokenPair{}, err
	}
	if err := d.Redis.Set(c.Request.Context(), refreshTokenKey(refresh), subject, d.Config.Auth.RefreshTokenExpiry).Err(); err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(d.Config.Auth.JWTExpiration),
	}, nil
}

func refreshTokenKey(token string) string { return "refresh_token:" + token }

func isDuplicateKeyErr(err error) bool {
	// go-sql-driver/mysql surfaces duplicate-key violations as error
	// code 1062.
	return err != nil && (strings.Contains(err.Error(), "1062") || strings.Contains(err.Error(), "Duplicate entry"))
}
