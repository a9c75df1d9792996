package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

type fakeVisibility struct {
	items []models.Announcement
	err   error
}

func (f *fakeVisibility) ListVisible(ctx context.Context, viewer models.ViewerContext, opts VisibilityOptions) ([]models.Announcement, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeReadState struct {
	read map[string]struct{}
}

func (f *fakeReadState) ReadSet(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	if f.read == nil {
		return map[string]struct{}{}, nil
	}
	return f.read, nil
}

type memoryCacheRepo struct {
	values map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = nil
	return nil
}

func newFeedService(visibility *fakeVisibility, reads *fakeReadState, cache *CacheService, now time.Time) *FeedService {
	svc := NewFeedService(visibility, reads, nil, cache, nil, FeedServiceConfig{})
	svc.now = func() time.Time { return now }
	return svc
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, nil, false)
}

func TestFeedBadges(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	soon := now.Add(12 * time.Hour)
	today := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	fresh := published("fresh", models.ScopePublic, func(a *models.Announcement) {
		a.CreatedAt = now.Add(-2 * time.Hour)
	})
	readOld := published("read-old", models.ScopePublic, func(a *models.Announcement) {
		a.CreatedAt = now.Add(-90 * time.Hour)
		a.RequiresAck = true
	})
	expiring := published("expiring", models.ScopePublic, func(a *models.Announcement) {
		a.CreatedAt = now.Add(-90 * time.Hour)
		a.ValidUntil = &soon
	})
	due := published("due", models.ScopePublic, func(a *models.Announcement) {
		a.CreatedAt = now.Add(-90 * time.Hour)
		a.ReminderDate = &today
	})

	visibility := &fakeVisibility{items: []models.Announcement{fresh, readOld, expiring, due}}
	reads := &fakeReadState{read: map[string]struct{}{"read-old": {}}}
	svc := newFeedService(visibility, reads, disabledCache(), now)

	views, pagination, err := svc.Feed(context.Background(), models.ViewerContext{ID: "s1", Role: models.RoleStudent}, FeedRequest{})
	require.NoError(t, err)
	require.Len(t, views, 4)
	assert.Equal(t, 4, pagination.TotalCount)

	byID := make(map[string]int, len(views))
	for i, v := range views {
		byID[v.ID] = i
	}

	assert.True(t, views[byID["fresh"]].IsNew)
	assert.False(t, views[byID["fresh"]].IsRead)

	assert.True(t, views[byID["read-old"]].IsRead)
	assert.False(t, views[byID["read-old"]].IsNew)
	assert.True(t, views[byID["read-old"]].IsAcknowledged)

	assert.True(t, views[byID["expiring"]].IsExpiringSoon)
	assert.True(t, views[byID["due"]].IsDueToday)
}

func TestFeedSearch(t *testing.T) {
	items := []models.Announcement{
		published("a1", models.ScopePublic, func(a *models.Announcement) {
			a.Title = "Sports Day"
			a.Body = "Annual meet"
		}),
		published("a2", models.ScopePublic, func(a *models.Announcement) {
			a.Title = "Exam schedule"
			a.Body = "Finals next week"
		}),
	}
	svc := newFeedService(&fakeVisibility{items: items}, &fakeReadState{}, disabledCache(), time.Now())

	views, _, err := svc.Feed(context.Background(), models.ViewerContext{ID: "s1", Role: models.RoleStudent}, FeedRequest{Search: "SPORTS"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "a1", views[0].ID)

	views, _, err = svc.Feed(context.Background(), models.ViewerContext{ID: "s1", Role: models.RoleStudent}, FeedRequest{Search: "finals"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "a2", views[0].ID)
}

func TestFeedPagination(t *testing.T) {
	items := make([]models.Announcement, 0, 5)
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		items = append(items, published(id, models.ScopePublic))
	}
	svc := newFeedService(&fakeVisibility{items: items}, &fakeReadState{}, disabledCache(), time.Now())
	viewer := models.ViewerContext{ID: "s1", Role: models.RoleStudent}

	page1, pagination, err := svc.Feed(context.Background(), viewer, FeedRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.Equal(t, 5, pagination.TotalCount)

	page3, _, err := svc.Feed(context.Background(), viewer, FeedRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	beyond, _, err := svc.Feed(context.Background(), viewer, FeedRequest{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestSummaryCounts(t *testing.T) {
	items := []models.Announcement{
		published("a1", models.ScopePublic, func(a *models.Announcement) {
			a.Priority = models.PriorityUrgent
			a.RequiresAck = true
		}),
		published("a2", models.ScopeAllStudents),
		published("a3", models.ScopeAllStudents, func(a *models.Announcement) {
			a.RequiresAck = true
		}),
	}
	reads := &fakeReadState{read: map[string]struct{}{"a3": {}}}
	svc := newFeedService(&fakeVisibility{items: items}, reads, disabledCache(), time.Now())

	summary, cacheHit, err := svc.Summary(context.Background(), models.ViewerContext{ID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Unread)
	assert.Equal(t, 1, summary.OutstandingAcks)
	assert.Equal(t, 1, summary.ByScope[models.ScopePublic])
	assert.Equal(t, 2, summary.ByScope[models.ScopeAllStudents])
	assert.Equal(t, 1, summary.ByPriority[models.PriorityUrgent])
	assert.Equal(t, 2, summary.ByPriority[models.PriorityNormal])
}

func TestSummaryUsesCache(t *testing.T) {
	cacheRepo := &memoryCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	items := []models.Announcement{published("a1", models.ScopePublic)}
	svc := newFeedService(&fakeVisibility{items: items}, &fakeReadState{}, cache, time.Now())
	viewer := models.ViewerContext{ID: "s1", Role: models.RoleStudent}

	first, hit, err := svc.Summary(context.Background(), viewer)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, first.Total)

	second, hit, err := svc.Summary(context.Background(), viewer)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Total, second.Total)
}
