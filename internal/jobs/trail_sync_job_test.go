package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
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

func pointFeatures(start, n int) string {
	var b strings.Builder
	b.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b,
			`{"type":"Feature","properties":{"OBJECTID":%d,"TRLNAME":"Trail %d","TRLCLASS":"Easy"},"geometry":{"type":"Point","coordinates":[-105.0,39.0]}}`,
			start+i, start+i)
	}
	b.WriteString("]}")
	return b.String()
}

// npsServer serves total features in pages and records every requested offset
func npsServer(t *testing.T, total int) (*httptest.Server, func() []int) {
	var (
		mu      sync.Mutex
		offsets []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, err := strconv.Atoi(r.URL.Query().Get("resultOffset"))
		assert.NoError(t, err)
		limit, err := strconv.Atoi(r.URL.Query().Get("resultRecordCount"))
		assert.NoError(t, err)

		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()

		n := total - offset
		if n > limit {
			n = limit
		}
		if n < 0 {
			n = 0
		}
		w.Write([]byte(pointFeatures(offset, n)))
	}))
	t.Cleanup(server.Close)

	return server, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), offsets...)
	}
}

func TestTrailSyncJob_StopsOnEmptyPage(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewTrailRepo(db)
	server, offsets := npsServer(t, 1000)

	m := newTestMetrics()
	job := NewTrailSyncJob(providers.NewNPSTrailsProvider(server.URL, time.Second, nil), repo, m)

	result := job.Run(context.Background())

	assert.Equal(t, []int{0, 1000}, offsets())
	assert.Equal(t, entities.SyncStatusSuccess, result.Status)
	assert.Equal(t, 1000, result.Written)
	assert.Equal(t, 1, result.Pages)

	count, err := repo.CountBySource(context.Background(), constants.SourceNPSTrails)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, count)

	assert.Equal(t, 1000.0, testutil.ToFloat64(m.SyncRecordsWritten.WithLabelValues(constants.SourceNPSTrails)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues(constants.SourceNPSTrails, "success")))
}

func TestTrailSyncJob_IsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewTrailRepo(db)
	server, _ := npsServer(t, 25)

	job := NewTrailSyncJob(providers.NewNPSTrailsProvider(server.URL, time.Second, nil), repo, newTestMetrics())

	first := job.Run(context.Background())
	second := job.Run(context.Background())

	assert.Equal(t, 25, first.Written)
	assert.Equal(t, 25, second.Written)

	count, err := repo.CountBySource(context.Background(), constants.SourceNPSTrails)
	require.NoError(t, err)
	assert.EqualValues(t, 25, count)
}

type fakeTrailFetcher struct {
	mu      sync.Mutex
	pages   map[int]*providers.TrailPage
	errs    map[int]error
	offsets []int
}

func (f *fakeTrailFetcher) FetchPage(_ context.Context, offset, _ int) (*providers.TrailPage, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.mu.Unlock()

	if err, ok := f.errs[offset]; ok {
		return nil, err
	}
	if page, ok := f.pages[offset]; ok {
		return page, nil
	}
	return &providers.TrailPage{}, nil
}

type fakeTrailStore struct {
	failFor map[string]bool
	panicOn string
	stored  []string
}

func (s *fakeTrailStore) Upsert(_ context.Context, trail *gorm.Trail) error {
	if trail.ExternalID == s.panicOn {
		panic("store exploded")
	}
	if s.failFor[trail.ExternalID] {
		return fmt.Errorf("%w: connection refused", repositories.ErrStorageUnavailable)
	}
	s.stored = append(s.stored, trail.ExternalID)
	return nil
}

func trailPage(ids ...string) *providers.TrailPage {
	page := &providers.TrailPage{FeatureCount: len(ids)}
	for _, id := range ids {
		page.Trails = append(page.Trails, &gorm.Trail{
			Name:       "Trail " + id,
			Location:   gorm.GeoPoint{Lon: -105, Lat: 39},
			Difficulty: gorm.DifficultyModerate,
			ExternalID: id,
			Source:     constants.SourceNPSTrails,
		})
	}
	return page
}

func TestTrailSyncJob_PageFailureEndsRun(t *testing.T) {
	fetcher := &fakeTrailFetcher{
		pages: map[int]*providers.TrailPage{0: trailPage("nps_1", "nps_2")},
		errs: map[int]error{2: &providers.ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "timeout",
		}},
	}
	store := &fakeTrailStore{}
	m := newTestMetrics()

	result := NewTrailSyncJob(fetcher, store, m).Run(context.Background())

	assert.Equal(t, []int{0, 2}, fetcher.offsets, "failed offset is not retried")
	assert.Equal(t, entities.SyncStatusPartialFailure, result.Status)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, constants.ErrCodeNetworkError, providers.ErrorCode(result.LastErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncPageFailures.WithLabelValues(constants.SourceNPSTrails, constants.ErrCodeNetworkError)))
}

func TestTrailSyncJob_StoreFailureContinues(t *testing.T) {
	fetcher := &fakeTrailFetcher{
		pages: map[int]*providers.TrailPage{
			0: trailPage("nps_1", "nps_2", "nps_3"),
			3: trailPage("nps_4"),
		},
	}
	store := &fakeTrailStore{failFor: map[string]bool{"nps_2": true}}

	result := NewTrailSyncJob(fetcher, store, newTestMetrics()).Run(context.Background())

	assert.Equal(t, []string{"nps_1", "nps_3", "nps_4"}, store.stored)
	assert.Equal(t, 3, result.Written)
	assert.Equal(t, 1, result.StoreFailures)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, entities.SyncStatusPartialFailure, result.Status)
	assert.True(t, errors.Is(result.LastErr, repositories.ErrStorageUnavailable))
}

func TestTrailSyncJob_RejectedFeaturesAdvanceOffset(t *testing.T) {
	page := trailPage("nps_1")
	page.FeatureCount = 3
	page.Rejected = []*providers.RejectError{
		{Reason: constants.RejectUnsupportedGeom},
		{Reason: constants.RejectMissingName},
	}
	fetcher := &fakeTrailFetcher{pages: map[int]*providers.TrailPage{0: page}}

	result := NewTrailSyncJob(fetcher, &fakeTrailStore{}, newTestMetrics()).Run(context.Background())

	assert.Equal(t, []int{0, 3}, fetcher.offsets)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 2, result.Rejected)
	assert.True(t, result.OK())
}

func TestTrailSyncJob_RecoversPanic(t *testing.T) {
	fetcher := &fakeTrailFetcher{
		pages: map[int]*providers.TrailPage{0: trailPage("nps_1", "nps_2", "nps_3")},
	}
	store := &fakeTrailStore{panicOn: "nps_2"}

	var result entities.SyncResult
	require.NotPanics(t, func() {
		result = NewTrailSyncJob(fetcher, store, newTestMetrics()).Run(context.Background())
	})

	assert.Equal(t, entities.SyncStatusPartialFailure, result.Status)
	assert.Equal(t, []string{"nps_1"}, store.stored)
	assert.Contains(t, result.LastError, "panicked")
	assert.Equal(t, 1, result.Written, "writes before the panic are still reported")
}
