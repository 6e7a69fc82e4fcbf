package entity

import "time"

// SuspiciousActivity is one append-only audit row. Rows are written only
// for accounts whose status is "suspicious" at the time of the action and
// are never updated or deleted by the application.
type SuspiciousActivity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"timestamp"`

	UserID   uint   `gorm:"column:user_id;index;not null" json:"user_id"`
	Username string `gorm:"column:username;type:varchar(50);not null" json:"username"`
	Action   string `gorm:"column:action;type:varchar(50);not null" json:"action"`
}

// TableName 指定表名。
func (SuspiciousActivity) TableName() string {
	return "suspicious_activities"
}
