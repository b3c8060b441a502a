package gorm

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
)

func TestGeoPoint_GormValue_Postgres(t *testing.T) {
	db := &gormlib.DB{Config: &gormlib.Config{Dialector: postgres.Dialector{Config: &postgres.Config{}}}}

	expr := GeoPoint{Lon: -105.0, Lat: 39.0}.GormValue(context.Background(), db)

	assert.Equal(t, "ST_SetSRID(ST_MakePoint(?, ?), 4326)", expr.SQL)
	assert.Equal(t, []interface{}{-105.0, 39.0}, expr.Vars)
}

func TestGeoPoint_GormValue_SQLite(t *testing.T) {
	db := &gormlib.DB{Config: &gormlib.Config{Dialector: sqlite.Dialector{}}}

	expr := GeoPoint{Lon: -105.5, Lat: 39.25}.GormValue(context.Background(), db)

	assert.Equal(t, "?", expr.SQL)
	assert.Equal(t, []interface{}{"POINT(-105.5 39.25)"}, expr.Vars)
}

func TestGeoPoint_ScanWKT(t *testing.T) {
	var p GeoPoint
	require.NoError(t, p.Scan("POINT(-105 39)"))
	assert.Equal(t, GeoPoint{Lon: -105, Lat: 39}, p)
}

func TestGeoPoint_ScanHexEWKB(t *testing.T) {
	data, err := ewkb.Marshal(orb.Point{-111.5, 44.25}, SRIDWGS84)
	require.NoError(t, err)

	var p GeoPoint
	require.NoError(t, p.Scan(hex.EncodeToString(data)))
	assert.Equal(t, GeoPoint{Lon: -111.5, Lat: 44.25}, p)

	var q GeoPoint
	require.NoError(t, q.Scan(data))
	assert.Equal(t, p, q)
}

func TestGeoPoint_ScanRejectsNonPoint(t *testing.T) {
	data, err := ewkb.Marshal(orb.LineString{{0, 0}, {1, 1}}, SRIDWGS84)
	require.NoError(t, err)

	var p GeoPoint
	assert.Error(t, p.Scan(data))
	assert.Error(t, p.Scan(42))
}

func TestGeoPoint_Valid(t *testing.T) {
	assert.True(t, GeoPoint{Lon: 180, Lat: -90}.Valid())
	assert.False(t, GeoPoint{Lon: 180.01, Lat: 0}.Valid())
	assert.False(t, GeoPoint{Lon: 0, Lat: 90.5}.Valid())
}
