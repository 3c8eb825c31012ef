// pkg/auth/jwt.go
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

type Claims struct {
	Email  string `json:"email"`
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`

	// IssuedAtMilli carries the issue time at millisecond precision; the
	// registered iat is whole seconds.
	IssuedAtMilli int64 `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// Issued returns when the token was issued, falling back to the whole second
// iat for tokens without iat_ms.
func (c *Claims) Issued() time.Time {
	if c.IssuedAtMilli > 0 {
		return time.UnixMilli(c.IssuedAtMilli)
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// Remaining is how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenManager(secret string, ttl time.Duration, clk clock.Clock) *TokenManager {
	if clk == nil {
		clk = clock.WallClock
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, clock: clk}
}

func (m *TokenManager) TTL() time.Duration { return m.ttl }

func (m *TokenManager) GenerateToken(email string, userID int64, role string) (string, *Claims, error) {
	now := m.clock.Now()
	claims := &Claims{
		Email:         email,
		UserID:        userID,
		Role:          role,
		IssuedAtMilli: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, errors.Annotate(err, "signing token")
	}
	return signed, claims, nil
}

func (m *TokenManager) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.clock.Now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.NewUnauthorized(nil, "Token expired")
	}
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorized(nil, "Invalid token")
	}
	return claims, nil
}
