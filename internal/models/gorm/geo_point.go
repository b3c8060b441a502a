package gorm

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/encoding/wkt"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// SRIDWGS84 is the spatial reference used by every location column
const SRIDWGS84 = 4326

// GeoPoint is a WGS84 longitude/latitude pair stored as a PostGIS geography point.
// Non-Postgres dialects (sqlite in tests) store it as WKT text.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// NewGeoPoint builds a GeoPoint from an orb point
func NewGeoPoint(p orb.Point) GeoPoint {
	return GeoPoint{Lon: p.Lon(), Lat: p.Lat()}
}

// Point returns the orb representation
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Valid reports whether the coordinates are inside WGS84 bounds
func (p GeoPoint) Valid() bool {
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

func (p GeoPoint) String() string {
	return wkt.MarshalString(p.Point())
}

// GormDataType implements schema.GormDataTypeInterface
func (GeoPoint) GormDataType() string {
	return "geography"
}

// GormDBDataType picks the column type per dialect
func (GeoPoint) GormDBDataType(db *gormlib.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("geography(Point,%d)", SRIDWGS84)
	}
	return "text"
}

// GormValue builds the point server side so the SRID always matches the rest of the store
func (p GeoPoint) GormValue(_ context.Context, db *gormlib.DB) clause.Expr {
	if db.Dialector.Name() == "postgres" {
		return clause.Expr{
			SQL:  fmt.Sprintf("ST_SetSRID(ST_MakePoint(?, ?), %d)", SRIDWGS84),
			Vars: []interface{}{p.Lon, p.Lat},
		}
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{p.String()}}
}

// Scan accepts WKT text or (hex encoded) EWKB as returned by PostGIS
func (p *GeoPoint) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = GeoPoint{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("geo point: unsupported scan type %T", value)
	}

	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(strings.ToUpper(s), "POINT") {
		pt, err := wkt.UnmarshalPoint(s)
		if err != nil {
			return fmt.Errorf("geo point: %w", err)
		}
		*p = NewGeoPoint(pt)
		return nil
	}

	data := raw
	if decoded, err := hex.DecodeString(s); err == nil {
		data = decoded
	}
	geom, _, err := ewkb.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("geo point: %w", err)
	}
	pt, ok := geom.(orb.Point)
	if !ok {
		return fmt.Errorf("geo point: expected Point, got %s", geom.GeoJSONType())
	}
	*p = NewGeoPoint(pt)
	return nil
}
