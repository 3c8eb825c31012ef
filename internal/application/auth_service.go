// internal/application/auth_service.go
package application

import (
	"context"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/auth"
)

var errInvalidCredentials = errors.NewUnauthorized(nil, "Invalid credentials")

type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	tokens   *auth.TokenManager
	clock    clock.Clock
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionStore, tokens *auth.TokenManager, clk clock.Clock) *AuthService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &AuthService{users: users, sessions: sessions, tokens: tokens, clock: clk}
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.NewNotValid(nil, "Email and password are required")
	}
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, errors.NotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errors.NewUnauthorized(nil, "Account is deactivated")
	}
	token, claims, err := s.tokens.GenerateToken(user.Email, user.ID, string(user.Role))
	if err != nil {
		return nil, errors.Annotate(err, "failed to generate token")
	}
	logger.Infof("user %d (%s) logged in", user.ID, user.Role)
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.FindUserByID(ctx, userID)
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.Remaining(s.clock.Now())
	if err := s.sessions.Revoke(ctx, claims.ID, ttl); err != nil {
		return errors.Annotate(err, "failed to revoke token")
	}
	return nil
}

// ForceLogout invalidates every token userID holds right now.
func (s *AuthService) ForceLogout(ctx context.Context, userID int64) error {
	return forceLogout(ctx, s.sessions, userID, s.clock.Now(), s.tokens.TTL())
}

func forceLogout(ctx context.Context, sessions ports.SessionStore, userID int64, now time.Time, ttl time.Duration) error {
	if sessions == nil {
		return nil
	}
	if err := sessions.RevokeUserBefore(ctx, userID, now, ttl); err != nil {
		return errors.Annotatef(err, "failed to log out user %d", userID)
	}
	logger.Infof("sessions of user %d revoked", userID)
	return nil
}

// Authenticate resolves a bearer token to its still active user. Session
// store failures are logged and do not lock everyone out.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, errors.NewUnauthorized(nil, "Access denied. No token provided.")
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.Warningf("checking revocation of token %s: %v", claims.ID, err)
	}
	if revoked {
		return nil, nil, errors.NewUnauthorized(nil, "Token has been revoked")
	}
	cutoff, err := s.sessions.RevokedBefore(ctx, claims.UserID)
	if err != nil {
		logger.Warningf("checking forced logout of user %d: %v", claims.UserID, err)
	}
	// a token issued in the same millisecond as the cutoff is logged out too
	if !cutoff.IsZero() && !claims.Issued().After(cutoff) {
		return nil, nil, errors.NewUnauthorized(nil, "Session ended, please log in again")
	}

	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, errors.NotFound) {
		return nil, nil, errors.NewUnauthorized(nil, "User not found")
	}
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if !user.IsActive {
		return nil, nil, errors.NewUnauthorized(nil, "Account is deactivated")
	}
	return user, claims, nil
}
