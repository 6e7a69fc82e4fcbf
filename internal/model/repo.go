package model

import (
	"context"

	"qrmark/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.User) error
	UpdateUser(ctx context.Context, id uint, updates map[string]interface{}) error
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, id uint) (*entity.User, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
	DeleteUser(ctx context.Context, id uint) error
	EmailInUse(ctx context.Context, email string, excludeUserID uint) (bool, error)

	// QR 记录
	CreateQrRecord(ctx context.Context, record *entity.QrRecord) error
	GetQrRecord(ctx context.Context, id uint) (*entity.QrRecord, error)
	ListQrRecordsByUser(ctx context.Context, userID uint) ([]entity.QrRecord, error)
	CountQrRecordsByUserAndKind(ctx context.Context, userID uint, kind string) (int64, error)
	UpdateQrRecord(ctx context.Context, id uint, updates map[string]interface{}) error
	DeleteQrRecord(ctx context.Context, id uint) error

	// 可疑行为审计（只追加）
	CreateSuspiciousActivity(ctx context.Context, entry *entity.SuspiciousActivity) error
	ListSuspiciousActivities(ctx context.Context) ([]entity.SuspiciousActivity, error)
}
