package entity

import (
	"strings"
	"time"
)

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

const (
	UserStatusActive     = "active"
	UserStatusBlocked    = "blocked"
	UserStatusSuspicious = "suspicious"
	UserStatusDeleted    = "deleted"
)

// User 表示持久化的用户账户。
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"column:role;type:varchar(50);index;not null" json:"role"`
	Status       string    `gorm:"column:status;type:varchar(20);index;not null;default:active" json:"status"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// NormalizeRole maps any external role spelling (including the legacy
// "ROLE_ADMIN" prefixed form) onto the closed {user, admin} set. Unknown
// or empty values normalize to the plain user role.
func NormalizeRole(role string) string {
	trimmed := strings.ToLower(strings.TrimSpace(role))
	trimmed = strings.TrimPrefix(trimmed, "role_")
	if trimmed == UserRoleAdmin {
		return UserRoleAdmin
	}
	return UserRoleUser
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return NormalizeRole(u.Role) == UserRoleAdmin
}

// IsStatus compares the account status case-insensitively.
func (u *User) IsStatus(status string) bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(u.Status, status)
}
