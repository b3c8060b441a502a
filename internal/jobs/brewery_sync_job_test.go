package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"beer-and-hike/backend/internal/constants"
	"beer-and-hike/backend/internal/db/repositories"
	"beer-and-hike/backend/internal/models/entities"
	"beer-and-hike/backend/internal/models/gorm"
	"beer-and-hike/backend/internal/providers"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreweryJob(t *testing.T, handler http.HandlerFunc) (*BrewerySyncJob, *repositories.BreweryRepo) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	repo := repositories.NewBreweryRepo(setupTestDB(t))
	provider := providers.NewOpenBreweryProvider(server.URL, time.Second, nil)
	return NewBrewerySyncJob(provider, repo, newTestMetrics()), repo
}

func TestBrewerySyncJob_PollsAtMostFiftyPages(t *testing.T) {
	var requests atomic.Int32
	job, repo := newBreweryJob(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `[{"id":"brew-%s","name":"Brewery %s","brewery_type":"micro","latitude":"39.7","longitude":"-104.9"}]`, page, page)
	})

	result := job.Run(context.Background())

	assert.EqualValues(t, providers.BreweryMaxPages, requests.Load())
	assert.True(t, result.Capped)
	assert.Equal(t, entities.SyncStatusSuccess, result.Status)
	assert.Equal(t, 50, result.Pages)
	assert.Equal(t, 50, result.Written)

	count, err := repo.CountBySource(context.Background(), constants.SourceOpenBreweryDB)
	require.NoError(t, err)
	assert.EqualValues(t, 50, count)
}

func TestBrewerySyncJob_SkipsMissingLatitude(t *testing.T) {
	job, repo := newBreweryJob(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"id":"a","name":"Has Coords","brewery_type":"","latitude":"39.7","longitude":"-104.9"},
			{"id":"b","name":"No Lat","brewery_type":"micro","longitude":"-104.9"}
		]`))
	})

	result := job.Run(context.Background())

	assert.True(t, result.OK())
	assert.False(t, result.Capped)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Rejected)

	stored, err := repo.FindByExternalID(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "unknown", stored.Type)

	missing, err := repo.FindByExternalID(context.Background(), "b")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBrewerySyncJob_PageFailureKeepsEarlierWrites(t *testing.T) {
	var requests atomic.Int32
	job, repo := newBreweryJob(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if page > 5 {
			w.Write([]byte(`[]`))
			return
		}
		fmt.Fprintf(w, `[
			{"id":"p%[1]d-1","name":"One","latitude":"39.1","longitude":"-105.1"},
			{"id":"p%[1]d-2","name":"Two","latitude":"39.2","longitude":"-105.2"},
			{"id":"p%[1]d-3","name":"Three","latitude":"39.3","longitude":"-105.3"}
		]`, page)
	})

	result := job.Run(context.Background())

	assert.EqualValues(t, 2, requests.Load(), "no retry and no later pages")
	assert.Equal(t, entities.SyncStatusPartialFailure, result.Status)
	assert.Equal(t, 3, result.Written)
	assert.Equal(t, constants.ErrCodeUpstreamStatus, providers.ErrorCode(result.LastErr))

	count, err := repo.CountBySource(context.Background(), constants.SourceOpenBreweryDB)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestBrewerySyncJob_IsIdempotent(t *testing.T) {
	job, repo := newBreweryJob(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"id":"a","name":"A","latitude":39.1,"longitude":-105.1},
			{"id":"b","name":"B","latitude":39.2,"longitude":-105.2}
		]`))
	})

	job.Run(context.Background())
	job.Run(context.Background())

	count, err := repo.CountBySource(context.Background(), constants.SourceOpenBreweryDB)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

type pagedBreweryFetcher struct {
	pages map[int]*providers.BreweryPage
}

func (f *pagedBreweryFetcher) FetchPage(_ context.Context, page, _ int) (*providers.BreweryPage, error) {
	if listing, ok := f.pages[page]; ok {
		return listing, nil
	}
	return &providers.BreweryPage{}, nil
}

type panickyBreweryStore struct {
	panicOn string
	stored  []string
}

func (s *panickyBreweryStore) Upsert(_ context.Context, brewery *gorm.Brewery) error {
	if brewery.ExternalID == s.panicOn {
		panic("store exploded")
	}
	s.stored = append(s.stored, brewery.ExternalID)
	return nil
}

func TestBrewerySyncJob_RecoversPanicMidPage(t *testing.T) {
	listing := &providers.BreweryPage{ItemCount: 3}
	for _, id := range []string{"a", "b", "c"} {
		listing.Breweries = append(listing.Breweries, &gorm.Brewery{
			Name:       "Brewery " + id,
			Location:   gorm.GeoPoint{Lon: -104.9, Lat: 39.7},
			ExternalID: id,
			Source:     constants.SourceOpenBreweryDB,
		})
	}
	fetcher := &pagedBreweryFetcher{pages: map[int]*providers.BreweryPage{1: listing}}
	store := &panickyBreweryStore{panicOn: "c"}
	m := newTestMetrics()

	var result entities.SyncResult
	require.NotPanics(t, func() {
		result = NewBrewerySyncJob(fetcher, store, m).Run(context.Background())
	})

	assert.Equal(t, entities.SyncStatusPartialFailure, result.Status)
	assert.Equal(t, []string{"a", "b"}, store.stored)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncRecordsWritten.WithLabelValues(constants.SourceOpenBreweryDB)))
}
