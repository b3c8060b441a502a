package repositories

import (
	"context"

	"beer-and-hike/backend/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrailRepo handles trails table operations
type TrailRepo struct {
	db *gormlib.DB
}

// NewTrailRepo creates a new trail repository
func NewTrailRepo(db *gormlib.DB) *TrailRepo {
	return &TrailRepo{db: db}
}

// Upsert inserts a trail or, when the external id already exists, only
// refreshes updated_at. One statement, one row.
// ON CONFLICT (external_id) DO UPDATE SET updated_at
func (r *TrailRepo) Upsert(ctx context.Context, trail *gorm.Trail) error {
	if err := validateRecord(trail.ExternalID, trail.Name, trail.Location); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(trail).Error
	if err != nil {
		return storageError("upsert trail", trail.ExternalID, err)
	}
	return nil
}

// FindByExternalID finds a trail by its external id
func (r *TrailRepo) FindByExternalID(ctx context.Context, externalID string) (*gorm.Trail, error) {
	var trail gorm.Trail

	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&trail).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &trail, nil
}

// CountBySource returns the number of trails stored for a source tag
func (r *TrailRepo) CountBySource(ctx context.Context, source string) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&gorm.Trail{}).
		Where("source = ?", source).
		Count(&count).Error

	return count, err
}
