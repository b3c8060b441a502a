package db

import (
	"fmt"

	"gorm.io/gorm"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS trails (
		id           uuid PRIMARY KEY,
		name         text NOT NULL,
		location     geography(Point,4326) NOT NULL,
		difficulty   varchar(16) NOT NULL,
		length_miles double precision,
		external_id  varchar(255) NOT NULL UNIQUE,
		source       varchar(50) NOT NULL,
		created_at   timestamptz NOT NULL DEFAULT now(),
		updated_at   timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS trails_location_gix ON trails USING GIST (location)`,
	`CREATE INDEX IF NOT EXISTS trails_source_idx ON trails (source)`,
	`CREATE TABLE IF NOT EXISTS breweries (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		location    geography(Point,4326) NOT NULL,
		type        varchar(50) NOT NULL,
		external_id varchar(255) NOT NULL UNIQUE,
		source      varchar(50) NOT NULL,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS breweries_location_gix ON breweries USING GIST (location)`,
	`CREATE INDEX IF NOT EXISTS breweries_source_idx ON breweries (source)`,
}

// EnsureSchema creates the PostGIS extension and the synced tables if missing
func EnsureSchema(d *gorm.DB) error {
	for _, stmt := range schemaStatements {
		if err := d.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
