package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. A token issued for one purpose is rejected for another.
const (
	PurposeAuthCookie   = "auth-cookie"
	PurposeConfirmEmail = "confirm-email"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type tokenClaims struct {
	jwt.RegisteredClaims
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Stamp   string   `json:"stamp,omitempty"`
	Purpose string   `json:"purpose"`
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	key []byte
	now func() time.Time
}

func NewTokenManager(key []byte) *TokenManager {
	return &TokenManager{key: key, now: time.Now}
}

// Issue signs a token for the principal valid for lifetime.
func (tm *TokenManager) Issue(p *Principal, purpose string, lifetime time.Duration) (string, time.Time, error) {
	issued := tm.now()
	expires := issued.Add(lifetime)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name:    p.UserName,
		Roles:   p.Roles,
		Stamp:   p.SecurityStamp,
		Purpose: purpose,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

// Parse verifies the signature, expiry and purpose of a token.
func (tm *TokenManager) Parse(token, purpose string) (*Principal, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return tm.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: token purpose %q", ErrInvalidToken, claims.Purpose)
	}

	p := &Principal{
		UserID:        claims.Subject,
		UserName:      claims.Name,
		Roles:         claims.Roles,
		SecurityStamp: claims.Stamp,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
