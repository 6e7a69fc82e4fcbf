package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qrmark/internal/auth"
	"qrmark/internal/entity"
)

func newTestAuthService(t *testing.T, repo *fakeRepo) *AuthService {
	t.Helper()
	tokens, err := auth.NewManager("test-secret", "qrmark", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewAuthService(repo, tokens)
}

func seedUser(t *testing.T, repo *fakeRepo, username, email, password, role, status string) *entity.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return repo.addUser(entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, entity.RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !result.Success || result.Token == "" {
		t.Fatalf("unexpected register result: %+v", result)
	}
	if result.Email != "alice@example.com" {
		t.Errorf("email should be normalized to lowercase, got %q", result.Email)
	}

	login, err := svc.Login(ctx, entity.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Username != "alice" {
		t.Errorf("login username = %q, want alice", login.Username)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	_, err := svc.Register(ctx, entity.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email: got %v, want ErrEmailExists", err)
	}

	_, err = svc.Register(ctx, entity.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret1"})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("duplicate username: got %v, want ErrUsernameExists", err)
	}

	_, err = svc.Register(ctx, entity.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: got %v, want ErrWeakPassword", err)
	}
}

func TestLoginCheckOrdering(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()

	seedUser(t, repo, "gone", "gone@example.com", "secret1", entity.UserRoleUser, entity.UserStatusDeleted)
	seedUser(t, repo, "frozen", "frozen@example.com", "secret1", entity.UserRoleUser, entity.UserStatusBlocked)

	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "missing@example.com", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}

	// Deleted and blocked are reported before the password is checked.
	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "gone@example.com", Password: "wrong"}); !errors.Is(err, ErrAccountDeleted) {
		t.Errorf("deleted account: got %v, want ErrAccountDeleted", err)
	}
	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "frozen@example.com", Password: "wrong"}); !errors.Is(err, ErrAccountBlocked) {
		t.Errorf("blocked account: got %v, want ErrAccountBlocked", err)
	}

	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)
	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestSuspiciousLoginIsAudited(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "shady", "shady@example.com", "secret1", entity.UserRoleUser, entity.UserStatusSuspicious)
	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "shady@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("suspicious accounts must still log in: %v", err)
	}
	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if len(repo.activities) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(repo.activities))
	}
	if repo.activities[0].Action != "login" || repo.activities[0].Username != "shady" {
		t.Errorf("unexpected audit entry: %+v", repo.activities[0])
	}
}

func TestAuditFailureDoesNotBlockLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	seedUser(t, repo, "shady", "shady@example.com", "secret1", entity.UserRoleUser, entity.UserStatusSuspicious)
	repo.activityErr = errors.New("disk full")

	if _, err := svc.Login(context.Background(), entity.LoginRequest{Email: "shady@example.com", Password: "secret1"}); err != nil {
		t.Errorf("audit failure must not fail the login: %v", err)
	}
}

func TestAdminLoginByEmailOrUsername(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "admin", "admin@example.com", "secret1", entity.UserRoleAdmin, entity.UserStatusActive)
	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	if _, err := svc.AdminLogin(ctx, entity.AdminLoginRequest{Username: "admin", Password: "secret1"}); err != nil {
		t.Errorf("admin login by username: %v", err)
	}
	if _, err := svc.AdminLogin(ctx, entity.AdminLoginRequest{Username: "admin@example.com", Password: "secret1"}); err != nil {
		t.Errorf("admin login by email: %v", err)
	}
	if _, err := svc.AdminLogin(ctx, entity.AdminLoginRequest{Username: "alice", Password: "secret1"}); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("non-admin account: got %v, want ErrNotAdmin", err)
	}
}

func TestProfileViewAuditIsOptIn(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "shady", "shady@example.com", "secret1", entity.UserRoleUser, entity.UserStatusSuspicious)

	login, err := svc.Login(ctx, entity.LoginRequest{Email: "shady@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	baseline := len(repo.activities)

	if _, err := svc.GetProfile(ctx, login.Token, false); err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if len(repo.activities) != baseline {
		t.Errorf("profile view without opt-in must not be audited")
	}

	if _, err := svc.GetProfile(ctx, login.Token, true); err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if len(repo.activities) != baseline+1 {
		t.Fatalf("audit entries = %d, want %d", len(repo.activities), baseline+1)
	}
	if got := repo.activities[len(repo.activities)-1].Action; got != "profile_view" {
		t.Errorf("audit action = %q, want profile_view", got)
	}
}

func TestUpdateProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)
	seedUser(t, repo, "bob", "bob@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	login, err := svc.Login(ctx, entity.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// No fields set: nothing changes.
	_, changed, err := svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{})
	if err != nil || changed {
		t.Errorf("empty update: changed=%v err=%v, want no-op", changed, err)
	}

	// Email of another account is rejected.
	_, _, err = svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{Email: "bob@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("taken email: got %v, want ErrEmailTaken", err)
	}

	// Short password is rejected.
	_, _, err = svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{NewPassword: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("short password: got %v, want ErrWeakPassword", err)
	}

	// Independent fields apply together.
	updated, changed, err := svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{
		Email:       "new@example.com",
		NewPassword: "fresh-secret",
	})
	if err != nil || !changed {
		t.Fatalf("update: changed=%v err=%v", changed, err)
	}
	if updated.Email != "new@example.com" {
		t.Errorf("email = %q, want new@example.com", updated.Email)
	}
	if _, err := svc.Login(ctx, entity.LoginRequest{Email: "new@example.com", Password: "fresh-secret"}); err != nil {
		t.Errorf("login with new credentials: %v", err)
	}
}

func TestProfileUpdateOfSuspiciousAccountIsAudited(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "shady", "shady@example.com", "secret1", entity.UserRoleUser, entity.UserStatusSuspicious)

	login, err := svc.Login(ctx, entity.LoginRequest{Email: "shady@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	baseline := len(repo.activities)

	// A no-op update is not a mutation and must not be audited.
	if _, _, err := svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if len(repo.activities) != baseline {
		t.Errorf("no-op update must not be audited")
	}

	if _, _, err := svc.UpdateProfile(ctx, login.Token, entity.ProfileUpdateRequest{Email: "moved@example.com"}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if len(repo.activities) != baseline+1 {
		t.Fatalf("audit entries = %d, want %d", len(repo.activities), baseline+1)
	}
	if got := repo.activities[len(repo.activities)-1].Action; got != "profile_update" {
		t.Errorf("audit action = %q, want profile_update", got)
	}
}

func TestValidateTokenRejectsBlockedAccounts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	login, err := svc.Login(ctx, entity.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, login.Token); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	repo.users[user.ID].Status = entity.UserStatusBlocked
	if _, err := svc.ValidateToken(ctx, login.Token); !errors.Is(err, ErrAccountBlocked) {
		t.Errorf("blocked account: got %v, want ErrAccountBlocked", err)
	}

	if _, err := svc.ValidateToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v, want ErrInvalidToken", err)
	}
}

func TestIsEmailAvailable(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAuthService(t, repo)
	ctx := context.Background()
	seedUser(t, repo, "alice", "alice@example.com", "secret1", entity.UserRoleUser, entity.UserStatusActive)

	if svc.IsEmailAvailable(ctx, "alice@example.com") {
		t.Error("registered email should not be available")
	}
	if !svc.IsEmailAvailable(ctx, "fresh@example.com") {
		t.Error("unused email should be available")
	}
	if svc.IsEmailAvailable(ctx, "") {
		t.Error("empty email should not be available")
	}

	repo.userErr = errors.New("db down")
	if svc.IsEmailAvailable(ctx, "fresh@example.com") {
		t.Error("lookup failures should report unavailable")
	}
}
