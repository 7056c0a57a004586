package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Dan-MapMAchina/XATSimplified/internal/config"
)

// memoryBlacklist is an in-process stand-in for the Redis blacklist.
type memoryBlacklist struct {
	revoked map[string]bool
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{revoked: make(map[string]bool)}
}

func (m *memoryBlacklist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	m.revoked[jti] = true
	return nil
}

func (m *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

func newTestService(bl Blacklist) *Service {
	return NewService(config.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, bl)
}

func TestIssuePairRoundtrip(t *testing.T) {
	svc := newTestService(newMemoryBlacklist())

	access, refresh, err := svc.IssuePair("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := svc.ParseAccess(access)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
	if claims.TenantID != "tenant-1" {
		t.Errorf("TenantID = %q, want tenant-1", claims.TenantID)
	}

	rc, err := svc.ParseRefresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("ParseRefresh: %v", err)
	}
	if rc.Subject != "user-1" {
		t.Errorf("refresh Subject = %q, want user-1", rc.Subject)
	}
	if rc.ID == claims.ID {
		t.Error("access and refresh tokens must not share a jti")
	}
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	svc := newTestService(newMemoryBlacklist())

	access, refresh, err := svc.IssuePair("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.ParseAccess(refresh); err != ErrInvalidToken {
		t.Errorf("ParseAccess(refresh) err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ParseRefresh(context.Background(), access); err != ErrInvalidToken {
		t.Errorf("ParseRefresh(access) err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	svc := newTestService(nil)
	other := NewService(config.AuthConfig{
		JWTSecret:  "different-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}, nil)

	access, _, err := svc.IssuePair("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := other.ParseAccess(access); err != ErrInvalidToken {
		t.Errorf("ParseAccess with wrong secret err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := NewService(config.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  -time.Minute,
		RefreshTTL: -time.Minute,
	}, nil)

	access, refresh, err := svc.IssuePair("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.ParseAccess(access); err != ErrInvalidToken {
		t.Errorf("expired access err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ParseRefresh(context.Background(), refresh); err != ErrInvalidToken {
		t.Errorf("expired refresh err = %v, want ErrInvalidToken", err)
	}
}

func TestRevokedRefreshTokenIsRejected(t *testing.T) {
	bl := newMemoryBlacklist()
	svc := newTestService(bl)

	_, refresh, err := svc.IssuePair("user-1", "tenant-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.ParseRefresh(context.Background(), refresh); err != nil {
		t.Fatalf("refresh should be valid before revocation: %v", err)
	}

	if err := svc.RevokeRefresh(context.Background(), refresh); err != nil {
		t.Fatalf("RevokeRefresh: %v", err)
	}

	if _, err := svc.ParseRefresh(context.Background(), refresh); err != ErrInvalidToken {
		t.Errorf("revoked refresh err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := newTestService(nil)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ParseAccess(tok); err != ErrInvalidToken {
			t.Errorf("ParseAccess(%q) err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "abc123", true},
		{"all digits", "12345678", true},
		{"all digits long", "1234567890123", true},
		{"mixed ok", "correct-horse-1", false},
		{"letters only ok", "abcdefgh", false},
		{"exactly eight mixed", "a1234567", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) err = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
