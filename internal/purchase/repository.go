package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepository persists attempts in Postgres.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates the attempt repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates the purchase_attempts table.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&Attempt{})
}

func (r *GormRepository) Create(ctx context.Context, attempt *Attempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (r *GormRepository) Update(ctx context.Context, attempt *Attempt) error {
	if err := r.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	var attempt Attempt
	if err := r.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("attempt not found: %w", err)
	}
	return &attempt, nil
}

func (r *GormRepository) ListByInvestor(ctx context.Context, investor string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	var attempts []Attempt
	err := r.db.WithContext(ctx).
		Where("investor = ?", investor).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// Non-terminal statuses the sweep may find a crashed process left behind.
var sweepStatuses = []Status{StatusValidating, StatusApprovalPending, StatusPurchasePending}

// TimeOutStalePending marks attempts stuck in a pending state since before
// the cutoff as failed with a timeout. This is a UI-facing determination;
// the underlying transaction may still be mined.
func (r *GormRepository) TimeOutStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Attempt{}).
		Where("status IN ? AND updated_at < ?", sweepStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":          StatusFailed,
			"failure_code":    string(CodeTimeout),
			"failure_message": userMessageFor(CodeTimeout),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to time out stale attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
