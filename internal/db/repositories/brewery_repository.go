package repositories

import (
	"context"

	"beer-and-hike/backend/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BreweryRepo handles breweries table operations
type BreweryRepo struct {
	db *gormlib.DB
}

// NewBreweryRepo creates a new brewery repository
func NewBreweryRepo(db *gormlib.DB) *BreweryRepo {
	return &BreweryRepo{db: db}
}

// Upsert inserts a brewery or refreshes updated_at for a known external id
func (r *BreweryRepo) Upsert(ctx context.Context, brewery *gorm.Brewery) error {
	if err := validateRecord(brewery.ExternalID, brewery.Name, brewery.Location); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(brewery).Error
	if err != nil {
		return storageError("upsert brewery", brewery.ExternalID, err)
	}
	return nil
}

// FindByExternalID finds a brewery by its external id
func (r *BreweryRepo) FindByExternalID(ctx context.Context, externalID string) (*gorm.Brewery, error) {
	var brewery gorm.Brewery

	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&brewery).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &brewery, nil
}

// CountBySource returns the number of breweries stored for a source tag
func (r *BreweryRepo) CountBySource(ctx context.Context, source string) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&gorm.Brewery{}).
		Where("source = ?", source).
		Count(&count).Error

	return count, err
}
