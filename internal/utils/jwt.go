// internal/utils/jwt.go
// JWT issuance and validation for organizer accounts. Participants
// never receive JWTs; they authenticate with their registration-key
// secret instead (see helpers.go).

package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "tournament-engine"

// OrganizerClaims are the claims carried by an organizer access token.
type OrganizerClaims struct {
	OrganizerID string `json:"organizer_id"`
	AccountRole string `json:"account_role"`
	jwt.RegisteredClaims
}

// GenerateJWT issues an access token for an organizer account.
func GenerateJWT(organizerID, role, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := OrganizerClaims{
		OrganizerID: organizerID,
		AccountRole: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   organizerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT validates an organizer access token and returns the
// organizer id and account role it asserts.
func ValidateJWT(tokenString, secret string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OrganizerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", "", err
	}

	if claims, ok := token.Claims.(*OrganizerClaims); ok && token.Valid {
		return claims.OrganizerID, claims.AccountRole, nil
	}
	return "", "", fmt.Errorf("invalid token")
}
