package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/models/gorm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup test database
func setupTestDB(t *testing.T) *gormlib.DB {
	db, err := gormlib.Open(sqlite.Open(":memory:"), &gormlib.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// one connection, one in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&gorm.Trail{}, &gorm.Brewery{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func newTrail(externalID, name string) *gorm.Trail {
	return &gorm.Trail{
		Name:       name,
		Location:   gorm.GeoPoint{Lon: -105.0, Lat: 39.0},
		Difficulty: gorm.DifficultyModerate,
		ExternalID: externalID,
		Source:     constants.SourceNPSTrails,
	}
}

func TestTrailRepo_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrailRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, newTrail("nps_1", "Bear Lake Loop")))

	first, err := repo.FindByExternalID(ctx, "nps_1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, gorm.GeoPoint{Lon: -105.0, Lat: 39.0}, first.Location)

	later := first.UpdatedAt.Add(time.Hour)
	again := newTrail("nps_1", "Renamed Upstream")
	again.UpdatedAt = later
	require.NoError(t, repo.Upsert(ctx, again))

	count, err := repo.CountBySource(ctx, constants.SourceNPSTrails)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	second, err := repo.FindByExternalID(ctx, "nps_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Bear Lake Loop", second.Name, "only freshness is refreshed on conflict")
	assert.WithinDuration(t, later, second.UpdatedAt, time.Second)
}

func TestTrailRepo_UpsertRejectsInvalidRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrailRepo(db)
	ctx := context.Background()

	noID := newTrail("", "Nameless")
	assert.ErrorIs(t, repo.Upsert(ctx, noID), ErrInvalidRecord)

	noName := newTrail("nps_2", "")
	assert.ErrorIs(t, repo.Upsert(ctx, noName), ErrInvalidRecord)

	offMap := newTrail("nps_3", "Off the map")
	offMap.Location = gorm.GeoPoint{Lon: -190, Lat: 39}
	assert.ErrorIs(t, repo.Upsert(ctx, offMap), ErrInvalidRecord)

	count, err := repo.CountBySource(ctx, constants.SourceNPSTrails)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTrailRepo_UpsertStorageUnavailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrailRepo(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = repo.Upsert(context.Background(), newTrail("nps_9", "Closed Trail"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidRecord))
}

func TestBreweryRepo_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBreweryRepo(db)
	ctx := context.Background()

	b := func() *gorm.Brewery {
		return &gorm.Brewery{
			Name:       "Trailhead Brewing",
			Location:   gorm.GeoPoint{Lon: -104.99, Lat: 39.74},
			Type:       "micro",
			ExternalID: "5128df48-79fc-4f0f-8b52-d06be54d0cec",
			Source:     constants.SourceOpenBreweryDB,
		}
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Upsert(ctx, b()))
	}

	count, err := repo.CountBySource(ctx, constants.SourceOpenBreweryDB)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	stored, err := repo.FindByExternalID(ctx, "5128df48-79fc-4f0f-8b52-d06be54d0cec")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "micro", stored.Type)
	assert.Equal(t, gorm.GeoPoint{Lon: -104.99, Lat: 39.74}, stored.Location)

	missing, err := repo.FindByExternalID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
