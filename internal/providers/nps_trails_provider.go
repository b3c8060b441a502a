package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/models/gorm"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"
)

const (
	// NPSPageSize is the resultRecordCount requested per page
	NPSPageSize = 1000

	// NPSTimeout bounds each page request
	NPSTimeout = 30 * time.Second

	npsNameField  = "TRLNAME"
	npsClassField = "TRLCLASS"
	npsIDField    = "OBJECTID"

	metersPerMile = 1609.344
)

// NPSTrailsProvider reads the National Park Service trails feature service (ArcGIS, GeoJSON output)
type NPSTrailsProvider struct {
	BaseURL string
	http    pageClient
}

// NewNPSTrailsProvider creates a provider for the given query endpoint
func NewNPSTrailsProvider(baseURL string, timeout time.Duration, limiter *rate.Limiter) *NPSTrailsProvider {
	if timeout <= 0 {
		timeout = NPSTimeout
	}
	return &NPSTrailsProvider{
		BaseURL: baseURL,
		http:    newPageClient(timeout, limiter),
	}
}

// TrailPage is one normalized page of the feature service
type TrailPage struct {
	// FeatureCount is the number of features upstream returned, rejected ones included.
	// The next offset advances by this amount.
	FeatureCount int
	Trails       []*gorm.Trail
	Rejected     []*RejectError
}

// arcgisPage is the GeoJSON envelope. Features stay raw so one bad feature
// is rejected on its own instead of failing the page.
type arcgisPage struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
	Error    *arcgisError      `json:"error,omitempty"`
}

type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// FetchPage requests limit features starting at offset
func (p *NPSTrailsProvider) FetchPage(ctx context.Context, offset, limit int) (*TrailPage, error) {
	pageURL, err := p.pageURL(offset, limit)
	if err != nil {
		return nil, err
	}

	body, err := p.http.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var envelope arcgisPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Failed to decode feature collection",
			Err:     err,
		}
	}

	// ArcGIS reports query errors with HTTP 200 and an error object
	if envelope.Error != nil {
		return nil, &ProviderError{
			Code:       constants.ErrCodeUpstreamStatus,
			Message:    fmt.Sprintf("feature service error %d: %s", envelope.Error.Code, envelope.Error.Message),
			Details:    strings.Join(envelope.Error.Details, "; "),
			StatusCode: envelope.Error.Code,
		}
	}

	page := &TrailPage{FeatureCount: len(envelope.Features)}
	for _, raw := range envelope.Features {
		feature, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			page.Rejected = append(page.Rejected, reject(constants.RejectMalformed, "%v", err))
			continue
		}

		trail, rej := NormalizeTrail(feature)
		if rej != nil {
			page.Rejected = append(page.Rejected, rej)
			continue
		}
		page.Trails = append(page.Trails, trail)
	}

	return page, nil
}

func (p *NPSTrailsProvider) pageURL(offset, limit int) (string, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Invalid trails API URL",
			Err:     err,
		}
	}

	q := u.Query()
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("f", "geojson")
	q.Set("resultRecordCount", strconv.Itoa(limit))
	q.Set("resultOffset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// NormalizeTrail maps one feature to a Trail, or explains why it was skipped
func NormalizeTrail(f *geojson.Feature) (*gorm.Trail, *RejectError) {
	name := f.Properties.MustString(npsNameField, "")
	if name == "" {
		return nil, reject(constants.RejectMissingName, "feature has no %s", npsNameField)
	}

	if f.Geometry == nil {
		return nil, reject(constants.RejectMissingGeometry, "trail %q has no geometry", name)
	}

	point, ok := RepresentativePoint(f.Geometry)
	if !ok {
		return nil, reject(constants.RejectUnsupportedGeom, "trail %q has %s geometry", name, f.Geometry.GeoJSONType())
	}

	location := gorm.NewGeoPoint(point)
	if !location.Valid() {
		return nil, reject(constants.RejectOutOfRange, "trail %q at %s", name, location)
	}

	externalID, ok := npsExternalID(f)
	if !ok {
		return nil, reject(constants.RejectMissingID, "trail %q has no %s", name, npsIDField)
	}

	return &gorm.Trail{
		Name:        name,
		Location:    location,
		Difficulty:  ClassifyDifficulty(f.Properties.MustString(npsClassField, "")),
		LengthMiles: lengthMiles(f.Geometry),
		ExternalID:  externalID,
		Source:      constants.SourceNPSTrails,
	}, nil
}

// RepresentativePoint picks the point standing in for a geometry: the first
// vertex of a LineString, or the Point itself. Other kinds are unsupported.
func RepresentativePoint(g orb.Geometry) (orb.Point, bool) {
	switch geom := g.(type) {
	case orb.Point:
		return geom, true
	case orb.LineString:
		if len(geom) == 0 {
			return orb.Point{}, false
		}
		return geom[0], true
	default:
		return orb.Point{}, false
	}
}

// ClassifyDifficulty maps the free text class. Matching is case sensitive.
func ClassifyDifficulty(class string) gorm.Difficulty {
	switch {
	case strings.Contains(class, "Easy"):
		return gorm.DifficultyEasy
	case strings.Contains(class, "Difficult"):
		return gorm.DifficultyHard
	default:
		return gorm.DifficultyModerate
	}
}

func npsExternalID(f *geojson.Feature) (string, bool) {
	if id, ok := formatID(f.Properties[npsIDField]); ok {
		return constants.NPSExternalIDPrefix + id, true
	}
	if id, ok := formatID(f.ID); ok {
		return constants.NPSExternalIDPrefix + id, true
	}
	return "", false
}

func formatID(v interface{}) (string, bool) {
	switch id := v.(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	case string:
		if id == "" {
			return "", false
		}
		return id, true
	default:
		return "", false
	}
}

// lengthMiles is the haversine length of a LineString, nil for other kinds
func lengthMiles(g orb.Geometry) *float64 {
	ls, ok := g.(orb.LineString)
	if !ok || len(ls) < 2 {
		return nil
	}
	miles := math.Round(geo.LengthHaversine(ls)/metersPerMile*100) / 100
	return &miles
}
