package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-announce-api/internal/dto"
	"github.com/noah-isme/sma-announce-api/internal/models"
)

func feedSummaryCacheKey(viewerID string) string {
	return "feed:summary:" + viewerID
}

type visibilityLister interface {
	ListVisible(ctx context.Context, viewer models.ViewerContext, opts VisibilityOptions) ([]models.Announcement, error)
}

type readStateProvider interface {
	ReadSet(ctx context.Context, viewerID string) (map[string]struct{}, error)
}

// AttachmentResolver turns an opaque attachment reference into a
// retrievable URL. Storage itself lives outside this service.
type AttachmentResolver interface {
	Resolve(announcementID, ref string) (string, error)
}

// FeedServiceConfig tunes presentation thresholds.
type FeedServiceConfig struct {
	NewWindow       time.Duration
	ExpiringWindow  time.Duration
	DefaultPageSize int
	MaxPageSize     int
	SummaryCacheTTL time.Duration
}

// FeedService is the presenter: it merges visibility results with read
// state, derives the UI badges, applies text search, and aggregates
// dashboard counts.
type FeedService struct {
	visibility  visibilityLister
	receipts    readStateProvider
	attachments AttachmentResolver
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         FeedServiceConfig
}

// NewFeedService constructs a FeedService with sane defaults.
func NewFeedService(visibility visibilityLister, receipts readStateProvider, attachments AttachmentResolver, cache *CacheService, logger *zap.Logger, cfg FeedServiceConfig) *FeedService {
	if cfg.NewWindow <= 0 {
		cfg.NewWindow = 24 * time.Hour
	}
	if cfg.ExpiringWindow <= 0 {
		cfg.ExpiringWindow = 48 * time.Hour
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedService{
		visibility:  visibility,
		receipts:    receipts,
		attachments: attachments,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// FeedRequest describes one feed query.
type FeedRequest struct {
	IncludeExpired bool
	Search         string
	Page           int
	PageSize       int
}

// Feed returns the viewer's annotated announcement list. Search applies
// after the visibility and time filters, pagination last.
func (s *FeedService) Feed(ctx context.Context, viewer models.ViewerContext, req FeedRequest) ([]dto.AnnouncementView, *models.Pagination, error) {
	visible, err := s.visibility.ListVisible(ctx, viewer, VisibilityOptions{IncludeExpired: req.IncludeExpired})
	if err != nil {
		return nil, nil, err
	}
	readSet, err := s.receipts.ReadSet(ctx, viewer.ID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	views := make([]dto.AnnouncementView, 0, len(visible))
	for _, announcement := range visible {
		if req.Search != "" && !matchesSearch(&announcement, req.Search) {
			continue
		}
		views = append(views, s.buildView(announcement, readSet, now))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	total := len(views)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return views[start:end], pagination, nil
}

// Summary aggregates dashboard counts over the viewer's visible set. The
// result is cached per viewer; the second return reports a cache hit.
func (s *FeedService) Summary(ctx context.Context, viewer models.ViewerContext) (*dto.FeedSummary, bool, error) {
	cacheKey := feedSummaryCacheKey(viewer.ID)
	var cached dto.FeedSummary
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	visible, err := s.visibility.ListVisible(ctx, viewer, VisibilityOptions{})
	if err != nil {
		return nil, false, err
	}
	readSet, err := s.receipts.ReadSet(ctx, viewer.ID)
	if err != nil {
		return nil, false, err
	}

	summary := &dto.FeedSummary{
		Total:       len(visible),
		ByScope:     make(map[models.ScopeKind]int),
		ByPriority:  make(map[models.Priority]int),
		GeneratedAt: s.now().UTC(),
	}
	for _, announcement := range visible {
		summary.ByScope[announcement.TargetType]++
		summary.ByPriority[announcement.Priority]++
		if _, read := readSet[announcement.ID]; !read {
			summary.Unread++
			if announcement.RequiresAck {
				summary.OutstandingAcks++
			}
		}
	}

	if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.SummaryCacheTTL); err != nil {
		s.logger.Warn("feed summary cache write failed", zap.String("viewer_id", viewer.ID), zap.Error(err))
	}
	return summary, false, nil
}

func (s *FeedService) buildView(announcement models.Announcement, readSet map[string]struct{}, now time.Time) dto.AnnouncementView {
	_, isRead := readSet[announcement.ID]
	view := dto.AnnouncementView{
		Announcement:   announcement,
		ScopeLabel:     announcement.Scope().Label(),
		IsRead:         isRead,
		IsNew:          !isRead && now.Sub(announcement.CreatedAt) < s.cfg.NewWindow,
		IsAcknowledged: announcement.RequiresAck && isRead,
	}
	if announcement.ValidUntil != nil {
		remaining := announcement.ValidUntil.Sub(now)
		view.IsExpiringSoon = remaining >= 0 && remaining < s.cfg.ExpiringWindow
	}
	if announcement.ReminderDate != nil {
		ry, rm, rd := announcement.ReminderDate.UTC().Date()
		ny, nm, nd := now.Date()
		view.IsDueToday = ry == ny && rm == nm && rd == nd
	}
	if announcement.AttachmentRef != nil && s.attachments != nil {
		if url, err := s.attachments.Resolve(announcement.ID, *announcement.AttachmentRef); err == nil {
			view.AttachmentURL = &url
		} else {
			s.logger.Warn("attachment resolution failed",
				zap.String("announcement_id", announcement.ID), zap.Error(err))
		}
	}
	return view
}

// matchesSearch does a case-insensitive substring match over title and
// body. strings.ToLower applies Unicode case mapping, so non-ASCII
// scripts match as expected.
func matchesSearch(announcement *models.Announcement, query string) bool {
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(announcement.Title), needle) ||
		strings.Contains(strings.ToLower(announcement.Body), needle)
}
