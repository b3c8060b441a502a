package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// BreweryTypeUnknown is stored when the upstream omits brewery_type
const BreweryTypeUnknown = "unknown"

// Brewery represents a brewery synced from Open Brewery DB
type Brewery struct {
	ID         string    `gorm:"column:id;primaryKey;type:uuid"`
	Name       string    `gorm:"column:name;type:text;not null"`
	Location   GeoPoint  `gorm:"column:location;not null"`
	Type       string    `gorm:"column:type;type:varchar(50);not null"`
	ExternalID string    `gorm:"column:external_id;type:varchar(255);uniqueIndex;not null"`
	Source     string    `gorm:"column:source;type:varchar(50);not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Brewery) TableName() string {
	return "breweries"
}

// BeforeCreate assigns the internal id
func (b *Brewery) BeforeCreate(_ *gormlib.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
