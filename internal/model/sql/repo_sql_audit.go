package sql

import (
	"context"
	"fmt"

	"qrmark/internal/entity"
)

// CreateSuspiciousActivity appends an audit entry.
func (r *GormRepository) CreateSuspiciousActivity(ctx context.Context, activity *entity.SuspiciousActivity) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if activity == nil {
		return fmt.Errorf("activity is nil")
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListSuspiciousActivities returns the audit log, newest first.
func (r *GormRepository) ListSuspiciousActivities(ctx context.Context) ([]entity.SuspiciousActivity, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var activities []entity.SuspiciousActivity
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
