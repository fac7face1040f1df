package auth

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/db"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Trader@Example.com", "correct-horse", false)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Email != "trader@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.IsAdmin {
		t.Fatalf("expected non-admin account from public registration")
	}
	if user.PasswordHash == "correct-horse" {
		t.Fatalf("expected hashed password")
	}

	token, err := svc.Login(ctx, "trader@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}

	ident, err := svc.IdentityFromToken(ctx, token)
	if err != nil {
		t.Fatalf("IdentityFromToken returned error: %v", err)
	}
	if ident == nil {
		t.Fatalf("expected identity for fresh session")
	}
	if ident.UserID != user.ID || ident.IsAdmin {
		t.Fatalf("unexpected identity: %#v", ident)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "password-1", false); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, err := svc.Register(ctx, "dup@example.com", "password-2", false)
	if !eris.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "long-enough", false); err == nil {
		t.Errorf("expected error for invalid email")
	}
	if _, err := svc.Register(ctx, "ok@example.com", "short", false); err == nil {
		t.Errorf("expected error for short password")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "known@example.com", "password-1", false); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := svc.Login(ctx, "known@example.com", "wrong"); !eris.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "unknown@example.com", "password-1"); !eris.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignOutTearsDownSession(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "out@example.com", "password-1", false); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	token, err := svc.Login(ctx, "out@example.com", "password-1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.SignOut(ctx, token); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}

	ident, err := svc.IdentityFromToken(ctx, token)
	if err != nil {
		t.Fatalf("IdentityFromToken returned error: %v", err)
	}
	if ident != nil {
		t.Fatalf("expected nil identity after sign-out, got %#v", ident)
	}

	if err := svc.SignOut(ctx, "unknown-token"); err != nil {
		t.Fatalf("expected unknown token sign-out to no-op, got %v", err)
	}
}

func TestExpiredSessionYieldsNoIdentity(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "expired@example.com", "password-1", false); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	base := time.Now()
	svc.now = func() time.Time { return base }

	token, err := svc.Login(ctx, "expired@example.com", "password-1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	svc.now = func() time.Time { return base.Add(48 * time.Hour) }

	ident, err := svc.IdentityFromToken(ctx, token)
	if err != nil {
		t.Fatalf("IdentityFromToken returned error: %v", err)
	}
	if ident != nil {
		t.Fatalf("expected nil identity for expired session, got %#v", ident)
	}
}

func TestIdentityFromEmptyToken(t *testing.T) {
	t.Parallel()

	svc := setupService(t)

	ident, err := svc.IdentityFromToken(context.Background(), "")
	if err != nil {
		t.Fatalf("IdentityFromToken returned error: %v", err)
	}
	if ident != nil {
		t.Fatalf("expected nil identity for empty token")
	}
}

func TestCreateAdminAccount(t *testing.T) {
	t.Parallel()

	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "admin@example.com", "password-1", true); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	token, err := svc.Login(ctx, "admin@example.com", "password-1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	ident, err := svc.IdentityFromToken(ctx, token)
	if err != nil {
		t.Fatalf("IdentityFromToken returned error: %v", err)
	}
	if ident == nil || !ident.IsAdmin {
		t.Fatalf("expected admin identity, got %#v", ident)
	}
}

func setupService(t *testing.T) *Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "auth.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	svc, err := NewService(gormDB, 24*time.Hour, logger)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	return svc
}
