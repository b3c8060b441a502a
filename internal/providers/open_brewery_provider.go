package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/models/gorm"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// BreweryPageSize is the per_page requested from Open Brewery DB
	BreweryPageSize = 200

	// BreweryMaxPages caps one run so a misbehaving upstream cannot keep us paging
	BreweryMaxPages = 50

	// BreweryTimeout bounds each page request
	BreweryTimeout = 30 * time.Second
)

// OpenBreweryProvider reads the Open Brewery DB listing API
type OpenBreweryProvider struct {
	BaseURL string
	http    pageClient
}

// NewOpenBreweryProvider creates a provider for the given listing endpoint
func NewOpenBreweryProvider(baseURL string, timeout time.Duration, limiter *rate.Limiter) *OpenBreweryProvider {
	if timeout <= 0 {
		timeout = BreweryTimeout
	}
	return &OpenBreweryProvider{
		BaseURL: baseURL,
		http:    newPageClient(timeout, limiter),
	}
}

// BreweryPage is one normalized page of the listing
type BreweryPage struct {
	ItemCount int
	Breweries []*gorm.Brewery
	Rejected  []*RejectError
}

// FetchPage requests a 1-indexed page of perPage breweries
func (p *OpenBreweryProvider) FetchPage(ctx context.Context, page, perPage int) (*BreweryPage, error) {
	pageURL, err := p.pageURL(page, perPage)
	if err != nil {
		return nil, err
	}

	body, err := p.http.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Brewery listing is not valid JSON",
		}
	}
	listing := gjson.ParseBytes(body)
	if !listing.IsArray() {
		return nil, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Brewery listing is not an array",
		}
	}

	items := listing.Array()
	result := &BreweryPage{ItemCount: len(items)}
	for _, item := range items {
		brewery, rej := NormalizeBrewery(item)
		if rej != nil {
			result.Rejected = append(result.Rejected, rej)
			continue
		}
		result.Breweries = append(result.Breweries, brewery)
	}

	return result, nil
}

func (p *OpenBreweryProvider) pageURL(page, perPage int) (string, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Invalid brewery API URL",
			Err:     err,
		}
	}

	q := u.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// NormalizeBrewery maps one listing item to a Brewery, or explains why it was skipped.
// latitude/longitude arrive as text or numbers; both are accepted.
func NormalizeBrewery(item gjson.Result) (*gorm.Brewery, *RejectError) {
	if !item.IsObject() {
		return nil, reject(constants.RejectMalformed, "expected object, got %s", item.Type)
	}

	id := item.Get("id").String()

	lat, rej := coordinate(item, "latitude", id)
	if rej != nil {
		return nil, rej
	}
	lon, rej := coordinate(item, "longitude", id)
	if rej != nil {
		return nil, rej
	}

	name := strings.TrimSpace(item.Get("name").String())
	if name == "" {
		return nil, reject(constants.RejectMissingName, "brewery %s has no name", id)
	}
	if id == "" {
		return nil, reject(constants.RejectMissingID, "brewery %q has no id", name)
	}

	location := gorm.GeoPoint{Lon: lon, Lat: lat}
	if !location.Valid() {
		return nil, reject(constants.RejectOutOfRange, "brewery %s at %s", id, location)
	}

	breweryType := item.Get("brewery_type").String()
	if breweryType == "" {
		breweryType = gorm.BreweryTypeUnknown
	}

	return &gorm.Brewery{
		Name:       name,
		Location:   location,
		Type:       breweryType,
		ExternalID: id,
		Source:     constants.SourceOpenBreweryDB,
	}, nil
}

func coordinate(item gjson.Result, field, id string) (float64, *RejectError) {
	v := item.Get(field)
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, reject(constants.RejectMissingCoordinate, "brewery %s has empty %s", id, field)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, reject(constants.RejectMalformed, "brewery %s %s %q", id, field, s)
		}
		return f, nil
	case gjson.Null:
		return 0, reject(constants.RejectMissingCoordinate, "brewery %s has no %s", id, field)
	default:
		return 0, reject(constants.RejectMalformed, "brewery %s %s is %s", id, field, v.Type)
	}
}
