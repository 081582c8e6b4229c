// internal/utils/helpers.go
// Identifier, token and randomness helpers shared across the engine.

package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracing.
func GenerateRequestID() string {
	return fmt.Sprintf("req_%s", uuid.New().String())
}

// GenerateRefreshToken generates a secure refresh token
func GenerateRefreshToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewRegistrationKey mints the random key bytes stored against a
// participant; the public secret handed to them combines these with
// their participant id (see EncodeParticipantSecret).
func NewRegistrationKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncodeParticipantSecret packs a participant id and their registration
// key bytes into the single base64 string a client presents to
// authenticate as that participant.
func EncodeParticipantSecret(participantID uuid.UUID, key []byte) string {
	raw := make([]byte, 0, 16+len(key))
	raw = append(raw, participantID[:]...)
	raw = append(raw, key...)
	return base64.RawStdEncoding.EncodeToString(raw)
}

// DecodeParticipantSecret is the inverse of EncodeParticipantSecret:
// the first 16 bytes are the participant uuid, the remainder the key.
func DecodeParticipantSecret(secret string) (uuid.UUID, []byte, error) {
	raw, err := base64.RawStdEncoding.DecodeString(secret)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("malformed participant secret: %w", err)
	}
	if len(raw) <= 16 {
		return uuid.Nil, nil, fmt.Errorf("participant secret too short")
	}
	id, err := uuid.FromBytes(raw[:16])
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, raw[16:], nil
}

// RandomInt generates a random integer between 0 and max-1, from the
// system CSPRNG; used for fair-coin tie breaks so the outcome cannot
// be steered by a predictable seed.
func RandomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}
