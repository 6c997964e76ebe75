package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// newSessionToken returns a random (v4) UUID string
func newSessionToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// StateManager signs and verifies the OAuth state parameter so the callback
// can prove the flow started here
type StateManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateManager creates a new StateManager
func NewStateManager(secret string, ttl time.Duration) *StateManager {
	return &StateManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed state for provider
func (sm *StateManager) Issue(provider string) (string, error) {
	now := sm.now()

	claims := &models.OAuthStateClaims{
		Nonce:    uuid.New().String(),
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, expiry and provider of a returned state
func (sm *StateManager) Verify(state, provider string) error {
	if state == "" {
		return models.ErrInvalidState
	}

	claims := &models.OAuthStateClaims{}
	token, err := jwt.ParseWithClaims(state, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return sm.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil || !token.Valid {
		return models.ErrInvalidState
	}

	if claims.Provider != provider {
		return models.ErrInvalidState
	}

	return nil
}
