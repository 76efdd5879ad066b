package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository persists investor preferences.
type Repository interface {
	Get(ctx context.Context, investor string) (*Preferences, error)
	Save(ctx context.Context, prefs *Preferences) error
}

// GormRepository is the gorm-backed preferences store.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates the preferences repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates the investor_preferences table.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&Preferences{})
}

// Get returns the stored preferences, or nil when the investor has never
// saved any.
func (r *GormRepository) Get(ctx context.Context, investor string) (*Preferences, error) {
	var prefs Preferences
	err := r.db.WithContext(ctx).First(&prefs, "investor = ?", investor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *GormRepository) Save(ctx context.Context, prefs *Preferences) error {
	return r.db.WithContext(ctx).Save(prefs).Error
}
