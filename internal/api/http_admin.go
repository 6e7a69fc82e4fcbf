package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrmark/internal/service"
)

// AdminListUsers 列出全部非管理员账号
func (h *HTTPHandler) AdminListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("failed to list users")
		InternalError(c, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// AdminDeleteUser 删除账号及其全部记录
func (h *HTTPHandler) AdminDeleteUser(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// AdminDeleteAllUsers 删除全部非管理员账号
func (h *HTTPHandler) AdminDeleteAllUsers(c *gin.Context) {
	deleted, err := h.adminService.DeleteAllUsers(c.Request.Context())
	if err != nil {
		h.writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All users deleted successfully",
		"deleted": deleted,
	})
}

// AdminBlockUser 封禁账号
func (h *HTTPHandler) AdminBlockUser(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	user, err := h.adminService.BlockUser(c.Request.Context(), id)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User blocked successfully",
		"status":  user.Status,
	})
}

// AdminUnblockUser 解封账号，无条件恢复为 active
func (h *HTTPHandler) AdminUnblockUser(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	user, err := h.adminService.UnblockUser(c.Request.Context(), id)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User unblocked successfully",
		"status":  user.Status,
	})
}

// AdminMarkSuspicious 标记账号为可疑
func (h *HTTPHandler) AdminMarkSuspicious(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	user, err := h.adminService.MarkSuspicious(c.Request.Context(), id)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User marked as suspicious",
		"status":  user.Status,
	})
}

// AdminUnmarkSuspicious 取消可疑标记，仅对 suspicious 状态生效
func (h *HTTPHandler) AdminUnmarkSuspicious(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	user, cleared, err := h.adminService.UnmarkSuspicious(c.Request.Context(), id)
	if err != nil {
		h.writeAdminError(c, err)
		return
	}
	if !cleared {
		BadRequest(c, "User is not marked as suspicious")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Suspicious mark removed",
		"status":  user.Status,
	})
}

// AdminSuspiciousActivity 可疑行为审计日志，最新在前
func (h *HTTPHandler) AdminSuspiciousActivity(c *gin.Context) {
	activities, err := h.adminService.ListSuspiciousActivity(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("failed to list suspicious activity")
		InternalError(c, "Failed to load suspicious activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activities": activities})
}

func (h *HTTPHandler) writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		NotFound(c, "User not found")
	case errors.Is(err, service.ErrAdminTarget):
		Forbidden(c, "Admin accounts cannot be modified this way")
	default:
		logrus.WithError(err).Error("admin operation failed")
		InternalError(c, "Admin operation failed")
	}
}
