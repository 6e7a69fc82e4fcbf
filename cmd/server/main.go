package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrmark/internal/api"
	"qrmark/internal/config"
	"qrmark/internal/model"
	"qrmark/internal/storage"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	if repo != nil {
		if err := model.EnsureAdminUser(context.Background(), repo, cfg); err != nil {
			logrus.WithError(err).Warn("failed to ensure admin account")
		}
	}

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	httpHandler, err := api.NewHTTPHandler(cfg, repo, store)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	go httpHandler.StartupCleanup(context.Background())

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())
	r.Use(httpHandler.Identify())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// 扫码落地页，公开访问
	r.GET("/qr/:id", httpHandler.QrLanding)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", httpHandler.Register)
	authGroup.POST("/login", httpHandler.Login)
	authGroup.POST("/admin-login", httpHandler.AdminLogin)
	authGroup.POST("/validate", httpHandler.Validate)
	authGroup.POST("/check-email", httpHandler.CheckEmail)
	authGroup.POST("/profile", httpHandler.Profile)
	authGroup.POST("/profile/update", httpHandler.ProfileUpdate)

	qrGroup := apiGroup.Group("/qr")
	// 上传文件的下载地址嵌在二维码里，必须公开
	qrGroup.GET("/image/*filepath", httpHandler.ServeStoredFile)
	qrGroup.GET("/doc/*filepath", httpHandler.ServeStoredFile)

	qrProtected := qrGroup.Group("")
	qrProtected.Use(httpHandler.RequireUser())
	qrProtected.POST("/generate", httpHandler.GenerateQr)
	qrProtected.POST("/generate-image", httpHandler.GenerateQrFromImage)
	qrProtected.POST("/upload-doc", httpHandler.UploadDocument)
	qrProtected.POST("/scan", httpHandler.ScanQr)
	qrProtected.GET("/history", httpHandler.QrHistory)
	qrProtected.GET("/stats", httpHandler.QrStats)
	qrProtected.POST("/:id/update", httpHandler.UpdateQrText)
	qrProtected.DELETE("/:id", httpHandler.DeleteQr)

	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(httpHandler.RequireAdmin())
	adminGroup.GET("/users", httpHandler.AdminListUsers)
	adminGroup.DELETE("/users", httpHandler.AdminDeleteAllUsers)
	adminGroup.DELETE("/users/:id", httpHandler.AdminDeleteUser)
	adminGroup.POST("/users/:id/block", httpHandler.AdminBlockUser)
	adminGroup.POST("/users/:id/unblock", httpHandler.AdminUnblockUser)
	adminGroup.POST("/users/:id/suspicious", httpHandler.AdminMarkSuspicious)
	adminGroup.DELETE("/users/:id/suspicious", httpHandler.AdminUnmarkSuspicious)
	adminGroup.GET("/suspicious-activity", httpHandler.AdminSuspiciousActivity)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logger.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  300 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("服务器启动失败")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Log-Profile-View")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()

		latency := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"ip":      c.ClientIP(),
			"latency": latency.String(),
		}).Info("request completed")
	}
}
