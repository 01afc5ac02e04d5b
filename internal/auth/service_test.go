package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkurbatov/huddle/internal/store"
	"github.com/dkurbatov/huddle/internal/store/sqlite"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "huddle-test",
		Audience: "huddle-clients",
		TTL:      time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, testJWTConfig())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	userID, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID == 0 {
		t.Fatal("expected non-zero user id")
	}

	token, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("claims user id = %d, want %d", claims.UserID, userID)
	}
	if claims.Username != "alice" {
		t.Errorf("claims username = %q, want alice", claims.Username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "other-pass"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register error = %v, want ErrUserExists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "secret123"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("short username error = %v, want ErrInvalidUsername", err)
	}
	if _, err := svc.Register(ctx, "alice", "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("short password error = %v, want ErrInvalidPassword", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, 1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	otherSecret := testJWTConfig()
	otherSecret.Secret = []byte("different-secret")
	if _, err := ValidateToken(otherSecret, token); err == nil {
		t.Error("expected validation failure for wrong secret")
	}

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	if _, err := ValidateToken(otherIssuer, token); err == nil {
		t.Error("expected validation failure for wrong issuer")
	}

	if _, err := ValidateToken(cfg, "not-a-token"); err == nil {
		t.Error("expected validation failure for malformed token")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TTL = -time.Minute

	token, err := GenerateToken(cfg, 1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Error("expected validation failure for expired token")
	}
}

var _ store.UserStore = (*sqlite.SQLiteStore)(nil)
