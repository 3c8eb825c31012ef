// pkg/auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	m := NewTokenManager("test-secret", time.Hour, clk)

	token, issued, err := m.GenerateToken("cashier1@coffee.com", 2, "cashier")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if issued.ID == "" {
		t.Errorf("GenerateToken() claims without token id")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 2 || claims.Role != "cashier" || claims.Email != "cashier1@coffee.com" {
		t.Errorf("ValidateToken() claims = %+v", claims)
	}
	if want := clk.Now().Truncate(time.Millisecond); !claims.Issued().Equal(want) {
		t.Errorf("Issued() = %v, want %v", claims.Issued(), want)
	}
	if claims.ID != issued.ID {
		t.Errorf("token id = %q, want %q", claims.ID, issued.ID)
	}
	if got := claims.Remaining(clk.Now()); got <= 0 || got > time.Hour {
		t.Errorf("Remaining() = %v", got)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	m := NewTokenManager("test-secret", time.Hour, clk)
	other := NewTokenManager("other-secret", time.Hour, clk)

	token, _, err := m.GenerateToken("admin@coffee.com", 1, "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	foreign, _, err := other.GenerateToken("admin@coffee.com", 1, "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		advance time.Duration
		msg     string
	}{
		{"garbage", "not-a-token", 0, "Invalid token"},
		{"wrong secret", foreign, 0, "Invalid token"},
		{"expired", token, 2 * time.Hour, "Token expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Advance(tt.advance)
			_, err := m.ValidateToken(tt.token)
			if !errors.Is(err, errors.Unauthorized) {
				t.Fatalf("ValidateToken() error = %v, want Unauthorized", err)
			}
			if err.Error() != tt.msg {
				t.Errorf("ValidateToken() message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}
