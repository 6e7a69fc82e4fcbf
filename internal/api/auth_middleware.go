package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"qrmark/internal/entity"
)

const (
	currentUserContextKey = "current-user"

	blockedAccountMessage = "Your account has been blocked by an administrator"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID       uint
	Username string
	Email    string
	Role     string
	Status   string
}

// IsAdmin 判断用户是否具有管理员权限
func (u *RequestUser) IsAdmin() bool {
	if u == nil {
		return false
	}
	return entity.NormalizeRole(u.Role) == entity.UserRoleAdmin
}

// Identify resolves the bearer token into a request user, if any. Requests
// without a usable token continue anonymously; the route guards decide
// whether that is acceptable.
//
// blocked 状态在这里统一拦截。查询用户失败时默认放行为匿名请求，
// 配置 AUTH_FAIL_CLOSED 后改为直接拒绝。
func (h *HTTPHandler) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		username := h.authManager.Subject(tokenString)
		if username == "" {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := h.repo.GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.Next()
				return
			}
			logrus.WithError(err).WithField("username", username).Error("failed to load user for request")
			if h.cfg.AuthFailClosed {
				c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
					Success: false,
					Message: "unable to verify account",
				})
				return
			}
			c.Next()
			return
		}

		if user.IsStatus(entity.UserStatusBlocked) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Success: false,
				Message: blockedAccountMessage,
			})
			return
		}

		// Token 里的角色在签发时固定，重新登录前以它为准。
		role := h.authManager.RoleClaim(tokenString)
		if role == "" {
			role = user.Role
		}

		c.Set(currentUserContextKey, &RequestUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     entity.NormalizeRole(role),
			Status:   user.Status,
		})
		c.Next()
	}
}

// RequireUser 认证守卫中间件
func (h *HTTPHandler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Success: false,
				Message: "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin 管理员权限守卫中间件
func (h *HTTPHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, APIError{
				Success: false,
				Message: "admin access required",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}

// bearerToken extracts the bearer token from the Authorization header, or ""
// when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
