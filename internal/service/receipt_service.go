package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-announce-api/internal/models"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
)

type receiptRepository interface {
	Insert(ctx context.Context, announcementID, viewerID string) (bool, error)
	ReadSet(ctx context.Context, viewerID string) ([]string, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]models.ReadReceipt, error)
}

// ReceiptService tracks per-viewer read state. Marking is idempotent: the
// uniqueness constraint collapses concurrent calls for the same pair into a
// single row, so there is no read-then-write race.
type ReceiptService struct {
	repo          receiptRepository
	announcements announcementRepository
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewReceiptService constructs the service.
func NewReceiptService(repo receiptRepository, announcements announcementRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{repo: repo, announcements: announcements, cache: cache, metrics: metrics, logger: logger}
}

// MarkRead records that the viewer opened the announcement. A repeat call
// for the same pair is a no-op, not an error.
func (s *ReceiptService) MarkRead(ctx context.Context, announcementID, viewerID string) error {
	if _, err := s.announcements.GetByID(ctx, announcementID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	inserted, err := s.repo.Insert(ctx, announcementID, viewerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark announcement read")
	}
	if inserted {
		s.metrics.RecordReceiptWritten()
		if err := s.cache.Invalidate(ctx, feedSummaryCacheKey(viewerID)); err != nil {
			s.logger.Warn("summary invalidation after mark read failed",
				zap.String("viewer_id", viewerID), zap.Error(err))
		}
	}
	return nil
}

// ReadSet returns the announcement ids the viewer has opened, as a set for
// O(1) membership checks by the presenter.
func (s *ReceiptService) ReadSet(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	ids, err := s.repo.ReadSet(ctx, viewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load read set")
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Acknowledgements lists the receipts recorded for an announcement. In the
// baseline design "acknowledged" equals "has a receipt"; distinguishing an
// active dismissal from a mere open is an extension point.
func (s *ReceiptService) Acknowledgements(ctx context.Context, announcementID string) ([]models.ReadReceipt, error) {
	receipts, err := s.repo.ListByAnnouncement(ctx, announcementID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list acknowledgements")
	}
	return receipts, nil
}
