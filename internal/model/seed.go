package model

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"qrmark/internal/auth"
	"qrmark/internal/config"
	"qrmark/internal/entity"
)

const adminUsername = "admin"

// EnsureAdminUser creates the single admin account when it does not exist
// yet. The password must be supplied by the operator through configuration;
// without one, no account is created and a warning is logged. The password
// itself is never logged.
func EnsureAdminUser(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}

	_, err := repo.GetUserByUsername(ctx, adminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if cfg.AdminBootstrapPassword == "" {
		logrus.Warn("no admin account exists; set ADMIN_BOOTSTRAP_PASSWORD to create one")
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminBootstrapPassword)
	if err != nil {
		return err
	}

	admin := &entity.User{
		Username:     adminUsername,
		Email:        cfg.AdminBootstrapEmail,
		PasswordHash: hash,
		Role:         entity.UserRoleAdmin,
		Status:       entity.UserStatusActive,
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return err
	}

	logrus.WithField("username", adminUsername).Info("admin account created")
	return nil
}
