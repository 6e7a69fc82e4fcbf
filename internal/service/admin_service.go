package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"qrmark/internal/entity"
	"qrmark/internal/model"
)

// AdminService 管理端服务，封装用户管理和审计日志相关的业务逻辑。
type AdminService struct {
	repo model.Repository
	qr   *QrService
}

// NewAdminService 创建管理端服务实例。
func NewAdminService(repo model.Repository, qr *QrService) *AdminService {
	return &AdminService{repo: repo, qr: qr}
}

// ListUsers returns every non-admin account.
func (s *AdminService) ListUsers(ctx context.Context) ([]entity.UserSummary, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]entity.UserSummary, 0, len(users))
	for _, user := range users {
		if user.IsAdmin() {
			continue
		}
		summaries = append(summaries, entity.UserSummary{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
			Status:    user.Status,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		})
	}
	return summaries, nil
}

// DeleteUser permanently removes an account together with its QR records and
// backing files. Admin accounts cannot be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return ErrAdminTarget
	}

	// 记录清理失败只记日志，账号删除照常进行。
	if err := s.qr.DeleteAllForUser(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to clean up user's qr records")
	}
	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user deleted by administrator")
	return nil
}

// DeleteAllUsers removes every non-admin account and reports how many were
// deleted.
func (s *AdminService) DeleteAllUsers(ctx context.Context) (int, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, user := range users {
		if user.IsAdmin() {
			continue
		}
		if err := s.qr.DeleteAllForUser(ctx, user.ID); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to clean up user's qr records")
		}
		if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	logrus.WithField("count", deleted).Info("all user accounts deleted by administrator")
	return deleted, nil
}

// BlockUser prevents an account from logging in. Admin accounts cannot be
// blocked.
func (s *AdminService) BlockUser(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, ErrAdminTarget
	}
	return s.setStatus(ctx, user, entity.UserStatusBlocked)
}

// UnblockUser restores an account to active, regardless of its previous
// status.
func (s *AdminService) UnblockUser(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, user, entity.UserStatusActive)
}

// MarkSuspicious flags an account for auditing. Subsequent logins and opted-in
// profile views are written to the audit log.
func (s *AdminService) MarkSuspicious(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.setStatus(ctx, user, entity.UserStatusSuspicious)
	if err != nil {
		return nil, err
	}

	activity := &entity.SuspiciousActivity{
		UserID:   updated.ID,
		Username: updated.Username,
		Action:   "marked_suspicious",
	}
	if err := s.repo.CreateSuspiciousActivity(ctx, activity); err != nil {
		logrus.WithError(err).WithField("user_id", updated.ID).Error("failed to record suspicious activity")
	}
	return updated, nil
}

// UnmarkSuspicious clears the suspicious flag. The returned bool reports
// whether the flag was actually cleared; accounts in any other status are
// left untouched.
func (s *AdminService) UnmarkSuspicious(ctx context.Context, id uint) (*entity.User, bool, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !user.IsStatus(entity.UserStatusSuspicious) {
		return user, false, nil
	}
	updated, err := s.setStatus(ctx, user, entity.UserStatusActive)
	if err != nil {
		return nil, false, err
	}

	activity := &entity.SuspiciousActivity{
		UserID:   updated.ID,
		Username: updated.Username,
		Action:   "unmarked_suspicious",
	}
	if err := s.repo.CreateSuspiciousActivity(ctx, activity); err != nil {
		logrus.WithError(err).WithField("user_id", updated.ID).Error("failed to record suspicious activity")
	}
	return updated, true, nil
}

// ListSuspiciousActivity returns the audit log, newest first.
func (s *AdminService) ListSuspiciousActivity(ctx context.Context) ([]entity.SuspiciousActivity, error) {
	return s.repo.ListSuspiciousActivities(ctx)
}

func (s *AdminService) getUser(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AdminService) setStatus(ctx context.Context, user *entity.User, status string) (*entity.User, error) {
	if err := s.repo.UpdateUser(ctx, user.ID, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	user.Status = status
	return user, nil
}
