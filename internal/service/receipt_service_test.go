package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-announce-api/internal/models"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
)

type mockReceiptRepo struct {
	pairs map[string]map[string]time.Time
}

func (m *mockReceiptRepo) key(announcementID string) map[string]time.Time {
	if m.pairs == nil {
		m.pairs = make(map[string]map[string]time.Time)
	}
	if m.pairs[announcementID] == nil {
		m.pairs[announcementID] = make(map[string]time.Time)
	}
	return m.pairs[announcementID]
}

func (m *mockReceiptRepo) Insert(ctx context.Context, announcementID, viewerID string) (bool, error) {
	viewers := m.key(announcementID)
	if _, exists := viewers[viewerID]; exists {
		return false, nil
	}
	viewers[viewerID] = time.Now().UTC()
	return true, nil
}

func (m *mockReceiptRepo) ReadSet(ctx context.Context, viewerID string) ([]string, error) {
	var ids []string
	for announcementID, viewers := range m.pairs {
		if _, ok := viewers[viewerID]; ok {
			ids = append(ids, announcementID)
		}
	}
	return ids, nil
}

func (m *mockReceiptRepo) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	for viewerID, readAt := range m.key(announcementID) {
		receipts = append(receipts, models.ReadReceipt{
			AnnouncementID: announcementID,
			ViewerID:       viewerID,
			ReadAt:         readAt,
		})
	}
	return receipts, nil
}

func TestMarkReadIdempotent(t *testing.T) {
	existing := published("a1", models.ScopePublic)
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &existing}}
	receipts := &mockReceiptRepo{}
	svc := NewReceiptService(receipts, announcements, NewCacheService(nil, nil, 0, nil, false), NewMetricsService(), nil)

	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s1"))
	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s1"))

	set, err := svc.ReadSet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, set, 1)
	_, ok := set["a1"]
	assert.True(t, ok)
}

func TestMarkReadUnknownAnnouncement(t *testing.T) {
	svc := NewReceiptService(&mockReceiptRepo{}, &mockAnnouncementRepo{}, NewCacheService(nil, nil, 0, nil, false), NewMetricsService(), nil)

	err := svc.MarkRead(context.Background(), "missing", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReadSetDistinctPerViewer(t *testing.T) {
	a1 := published("a1", models.ScopePublic)
	a2 := published("a2", models.ScopePublic)
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &a1, "a2": &a2}}
	svc := NewReceiptService(&mockReceiptRepo{}, announcements, NewCacheService(nil, nil, 0, nil, false), NewMetricsService(), nil)

	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s1"))
	require.NoError(t, svc.MarkRead(context.Background(), "a2", "s1"))
	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s2"))

	s1, err := svc.ReadSet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	s2, err := svc.ReadSet(context.Background(), "s2")
	require.NoError(t, err)
	assert.Len(t, s2, 1)
}

func TestAcknowledgements(t *testing.T) {
	existing := published("a1", models.ScopePublic)
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &existing}}
	svc := NewReceiptService(&mockReceiptRepo{}, announcements, NewCacheService(nil, nil, 0, nil, false), NewMetricsService(), nil)

	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s1"))
	require.NoError(t, svc.MarkRead(context.Background(), "a1", "s2"))

	receipts, err := svc.Acknowledgements(context.Background(), "a1")
	require.NoError(t, err)
	assert.Len(t, receipts, 2)
}
