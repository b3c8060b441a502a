package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// Difficulty is the normalized trail difficulty class
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// Trail represents a trail synced from the NPS trails feature service
type Trail struct {
	ID          string     `gorm:"column:id;primaryKey;type:uuid"`
	Name        string     `gorm:"column:name;type:text;not null"`
	Location    GeoPoint   `gorm:"column:location;not null"`
	Difficulty  Difficulty `gorm:"column:difficulty;type:varchar(16);not null"`
	LengthMiles *float64   `gorm:"column:length_miles"`
	ExternalID  string     `gorm:"column:external_id;type:varchar(255);uniqueIndex;not null"`
	Source      string     `gorm:"column:source;type:varchar(50);not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Trail) TableName() string {
	return "trails"
}

// BeforeCreate assigns the internal id
func (t *Trail) BeforeCreate(_ *gormlib.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
