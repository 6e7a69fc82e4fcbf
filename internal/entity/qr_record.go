package entity

import "time"

const (
	QrKindGenerated = "generated"
	QrKindScanned   = "scanned"
)

// MaxQrContentLength is the character cap enforced when editing a record's
// text. Creation does not apply it.
const MaxQrContentLength = 750

// QrRecord stores one generated or scanned QR payload owned by a user.
type QrRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Content string `gorm:"column:content;type:text" json:"content"`
	Kind    string `gorm:"column:kind;type:varchar(20);index" json:"kind"`

	UserID uint  `gorm:"column:user_id;index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName 指定表名。
func (QrRecord) TableName() string {
	return "qr_records"
}
