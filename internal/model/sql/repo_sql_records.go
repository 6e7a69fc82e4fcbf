package sql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"qrmark/internal/entity"
)

// CreateQrRecord persists a new QR record.
func (r *GormRepository) CreateQrRecord(ctx context.Context, record *entity.QrRecord) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.UserID == 0 {
		return fmt.Errorf("record has no owner")
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// GetQrRecord loads a record by ID.
func (r *GormRepository) GetQrRecord(ctx context.Context, id uint) (*entity.QrRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid record id")
	}
	var record entity.QrRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListQrRecordsByUser returns a user's records, newest first.
func (r *GormRepository) ListQrRecordsByUser(ctx context.Context, userID uint) ([]entity.QrRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	var records []entity.QrRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountQrRecordsByUserAndKind counts a user's records of one kind.
func (r *GormRepository) CountQrRecordsByUserAndKind(ctx context.Context, userID uint, kind string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.QrRecord{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateQrRecord applies field updates to a record.
func (r *GormRepository) UpdateQrRecord(ctx context.Context, id uint, updates map[string]interface{}) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid record id")
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.QrRecord{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteQrRecord removes a record by ID.
func (r *GormRepository) DeleteQrRecord(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid record id")
	}
	result := r.db.WithContext(ctx).Delete(&entity.QrRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
