package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrmark/internal/entity"
	"qrmark/internal/service"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Register 用户注册
func (h *HTTPHandler) Register(c *gin.Context) {
	var req entity.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if !usernamePattern.MatchString(req.Username) {
		BadRequest(c, "Username must be 3-20 characters of letters, digits, or underscores")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		BadRequest(c, "A valid email address is required")
		return
	}
	if len(req.Password) < service.MinPasswordLength {
		BadRequest(c, "Password must be at least 6 characters")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			Conflict(c, "Email is already registered")
		case errors.Is(err, service.ErrUsernameExists):
			Conflict(c, "Username is already taken")
		case errors.Is(err, service.ErrWeakPassword):
			BadRequest(c, "Password must be at least 6 characters")
		default:
			logrus.WithError(err).Error("registration failed")
			InternalError(c, "Registration failed")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// Login 用户登录
func (h *HTTPHandler) Login(c *gin.Context) {
	var req entity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.writeLoginError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AdminLogin 管理员登录，标识符可以是用户名或邮箱
func (h *HTTPHandler) AdminLogin(c *gin.Context) {
	var req entity.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	result, err := h.authService.AdminLogin(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			Forbidden(c, "Admin credentials required")
			return
		}
		h.writeLoginError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) writeLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, "Invalid email or password")
	case errors.Is(err, service.ErrAccountDeleted):
		Unauthorized(c, "Your account has been deleted")
	case errors.Is(err, service.ErrAccountBlocked):
		Unauthorized(c, blockedAccountMessage)
	default:
		logrus.WithError(err).Error("login failed")
		InternalError(c, "Login failed")
	}
}

// Validate 校验 token 是否仍然有效
func (h *HTTPHandler) Validate(c *gin.Context) {
	var req entity.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			Unauthorized(c, "Invalid or expired token")
		case errors.Is(err, service.ErrAccountBlocked):
			Unauthorized(c, blockedAccountMessage)
		default:
			logrus.WithError(err).Error("token validation failed")
			InternalError(c, "Token validation failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"username": user.Username,
		"email":    user.Email,
		"role":     entity.NormalizeRole(user.Role),
	})
}

// Profile 返回当前账号的个人资料。通过 X-Log-Profile-View 头可以把这次
// 查看写入审计日志（仅对可疑账号生效）。
func (h *HTTPHandler) Profile(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		Unauthorized(c, "authentication required")
		return
	}

	logView := false
	switch strings.ToLower(strings.TrimSpace(c.GetHeader("X-Log-Profile-View"))) {
	case "1", "true":
		logView = true
	}

	user, err := h.authService.GetProfile(c.Request.Context(), token, logView)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			Unauthorized(c, "Invalid or expired token")
			return
		}
		logrus.WithError(err).Error("failed to load profile")
		InternalError(c, "Failed to load profile")
		return
	}

	created := user.CreatedAt
	updated := user.UpdatedAt
	c.JSON(http.StatusOK, entity.AuthResult{
		Success:   true,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: &created,
		UpdatedAt: &updated,
	})
}

// ProfileUpdate 更新当前账号的个人资料，字段彼此独立、均为可选。
func (h *HTTPHandler) ProfileUpdate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	if username := strings.TrimSpace(req.Username); username != "" && !usernamePattern.MatchString(username) {
		BadRequest(c, "Username must be 3-20 characters of letters, digits, or underscores")
		return
	}
	if email := strings.TrimSpace(req.Email); email != "" && !emailPattern.MatchString(email) {
		BadRequest(c, "A valid email address is required")
		return
	}

	user, changed, err := h.authService.UpdateProfile(c.Request.Context(), token, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			Unauthorized(c, "Invalid or expired token")
		case errors.Is(err, service.ErrEmailTaken):
			Conflict(c, "Email is already in use by another account")
		case errors.Is(err, service.ErrUsernameExists):
			Conflict(c, "Username is already taken")
		case errors.Is(err, service.ErrWeakPassword):
			BadRequest(c, "Password must be at least 6 characters")
		default:
			logrus.WithError(err).Error("profile update failed")
			InternalError(c, "Profile update failed")
		}
		return
	}

	message := "Profile updated successfully"
	if !changed {
		message = "No changes to update"
	}
	c.JSON(http.StatusOK, entity.AuthResult{
		Success:  true,
		Message:  message,
		Username: user.Username,
		Email:    user.Email,
	})
}

// CheckEmail 查询邮箱是否可用于注册
func (h *HTTPHandler) CheckEmail(c *gin.Context) {
	var req entity.CheckEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		BadRequest(c, "A valid email address is required")
		return
	}

	available := h.authService.IsEmailAvailable(c.Request.Context(), req.Email)
	message := "Email is available"
	if !available {
		message = "Email is already registered"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"available": available,
		"message":   message,
	})
}
