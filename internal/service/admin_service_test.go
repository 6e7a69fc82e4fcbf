package service

import (
	"context"
	"errors"
	"testing"

	"qrmark/internal/config"
	"qrmark/internal/entity"
)

func newTestAdminService(repo *fakeRepo, store *fakeStorage) *AdminService {
	cfg := config.Config{HTTPPort: "8080", CallbackScheme: "http", CallbackHostname: "qr.example.com"}
	return NewAdminService(repo, NewQrService(repo, store, cfg))
}

func TestListUsersExcludesAdmins(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	repo.addUser(entity.User{Username: "admin", Email: "admin@example.com", Role: entity.UserRoleAdmin, Status: entity.UserStatusActive})
	repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	repo.addUser(entity.User{Username: "bob", Email: "bob@example.com", Role: "ROLE_ADMIN", Status: entity.UserStatusActive})

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("listing should contain only non-admin accounts, got %+v", users)
	}
}

func TestDeleteUserCascadesAndRefusesAdmins(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStorage()
	svc := newTestAdminService(repo, store)
	admin := repo.addUser(entity.User{Username: "admin", Email: "admin@example.com", Role: entity.UserRoleAdmin, Status: entity.UserStatusActive})
	alice := repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	repo.addRecord(entity.QrRecord{Content: "text", Kind: entity.QrKindGenerated, UserID: alice.ID})
	repo.addRecord(entity.QrRecord{
		Content: "http://qr.example.com:8080/api/qr/doc/qr-docs/2026/01/01/f.pdf",
		Kind:    entity.QrKindGenerated,
		UserID:  alice.ID,
	})

	if err := svc.DeleteUser(context.Background(), admin.ID); !errors.Is(err, ErrAdminTarget) {
		t.Errorf("deleting an admin: got %v, want ErrAdminTarget", err)
	}

	if err := svc.DeleteUser(context.Background(), alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok := repo.users[alice.ID]; ok {
		t.Error("user row should be gone")
	}
	if len(repo.records) != 0 {
		t.Errorf("records should cascade, %d left", len(repo.records))
	}
	if len(store.deleted) != 1 || store.deleted[0] != "qr-docs/2026/01/01/f.pdf" {
		t.Errorf("backing file should be removed, deleted = %v", store.deleted)
	}

	if err := svc.DeleteUser(context.Background(), 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user: got %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUserSurvivesRecordCleanupFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	alice := repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	bob := repo.addUser(entity.User{Username: "bob", Email: "bob@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	repo.recordErr = errors.New("record store down")

	if err := svc.DeleteUser(context.Background(), alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok := repo.users[alice.ID]; ok {
		t.Error("user row should be gone even when record cleanup fails")
	}

	deleted, err := svc.DeleteAllUsers(context.Background())
	if err != nil {
		t.Fatalf("DeleteAllUsers: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, ok := repo.users[bob.ID]; ok {
		t.Error("bulk deletion should proceed past record cleanup failures")
	}
}

func TestDeleteAllUsersSparesAdmins(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	repo.addUser(entity.User{Username: "admin", Email: "admin@example.com", Role: entity.UserRoleAdmin, Status: entity.UserStatusActive})
	repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	repo.addUser(entity.User{Username: "bob", Email: "bob@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusBlocked})

	deleted, err := svc.DeleteAllUsers(context.Background())
	if err != nil {
		t.Fatalf("DeleteAllUsers: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if len(repo.users) != 1 {
		t.Errorf("only the admin should remain, %d users left", len(repo.users))
	}
}

func TestBlockAndUnblock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	admin := repo.addUser(entity.User{Username: "admin", Email: "admin@example.com", Role: entity.UserRoleAdmin, Status: entity.UserStatusActive})
	alice := repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})

	if _, err := svc.BlockUser(context.Background(), admin.ID); !errors.Is(err, ErrAdminTarget) {
		t.Errorf("blocking an admin: got %v, want ErrAdminTarget", err)
	}

	blocked, err := svc.BlockUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("BlockUser: %v", err)
	}
	if blocked.Status != entity.UserStatusBlocked {
		t.Errorf("status = %q, want blocked", blocked.Status)
	}

	unblocked, err := svc.UnblockUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("UnblockUser: %v", err)
	}
	if unblocked.Status != entity.UserStatusActive {
		t.Errorf("status = %q, want active", unblocked.Status)
	}
}

func TestUnblockResetsSuspiciousToActive(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	shady := repo.addUser(entity.User{Username: "shady", Email: "shady@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusSuspicious})

	// Unblock is an unconditional reset to active.
	user, err := svc.UnblockUser(context.Background(), shady.ID)
	if err != nil {
		t.Fatalf("UnblockUser: %v", err)
	}
	if user.Status != entity.UserStatusActive {
		t.Errorf("status = %q, want active", user.Status)
	}
}

func TestMarkAndUnmarkSuspicious(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAdminService(repo, newFakeStorage())
	alice := repo.addUser(entity.User{Username: "alice", Email: "alice@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusActive})
	bob := repo.addUser(entity.User{Username: "bob", Email: "bob@example.com", Role: entity.UserRoleUser, Status: entity.UserStatusBlocked})

	marked, err := svc.MarkSuspicious(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("MarkSuspicious: %v", err)
	}
	if marked.Status != entity.UserStatusSuspicious {
		t.Errorf("status = %q, want suspicious", marked.Status)
	}
	if len(repo.activities) != 1 || repo.activities[0].Action != "marked_suspicious" {
		t.Errorf("marking should be audited, got %+v", repo.activities)
	}

	cleared, changed, err := svc.UnmarkSuspicious(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("UnmarkSuspicious: %v", err)
	}
	if !changed || cleared.Status != entity.UserStatusActive {
		t.Errorf("changed=%v status=%q, want cleared to active", changed, cleared.Status)
	}
	if len(repo.activities) != 2 || repo.activities[1].Action != "unmarked_suspicious" {
		t.Errorf("unmarking should be audited, got %+v", repo.activities)
	}

	// Unmark leaves non-suspicious statuses alone.
	untouched, changed, err := svc.UnmarkSuspicious(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("UnmarkSuspicious: %v", err)
	}
	if changed {
		t.Error("unmark of a non-suspicious account must report no change")
	}
	if untouched.Status != entity.UserStatusBlocked {
		t.Errorf("blocked account must stay blocked, got %q", untouched.Status)
	}
	if len(repo.activities) != 2 {
		t.Errorf("no-op unmark must not be audited, got %d entries", len(repo.activities))
	}
}
