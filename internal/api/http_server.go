package api

import (
	"context"
	"time"

	"qrmark/internal/auth"
	"qrmark/internal/config"
	"qrmark/internal/model"
	"qrmark/internal/service"
	"qrmark/internal/storage"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	storage     storage.Storage
	authManager *auth.Manager

	// 服务层
	authService  *service.AuthService
	adminService *service.AdminService
	qrService    *service.QrService
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	authSvc := service.NewAuthService(repo, authManager)
	qrSvc := service.NewQrService(repo, store, cfg)
	adminSvc := service.NewAdminService(repo, qrSvc)

	return &HTTPHandler{
		cfg:          cfg,
		repo:         repo,
		storage:      store,
		authManager:  authManager,
		authService:  authSvc,
		adminService: adminSvc,
		qrService:    qrSvc,
	}, nil
}

// StartupCleanup 启动时的孤儿文件清理。
func (h *HTTPHandler) StartupCleanup(ctx context.Context) {
	h.qrService.CleanupOrphanFiles(ctx)
}
