package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-announce-api/internal/models"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
)

// VisibilityService computes the set of announcements a viewer may see.
// It is a pure query: every call recomputes from the store, holds no cursor
// state, and is safe for unbounded concurrent use.
type VisibilityService struct {
	repo    announcementRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewVisibilityService constructs the service.
func NewVisibilityService(repo announcementRepository, metrics *MetricsService, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// VisibilityOptions tune a ListVisible call.
type VisibilityOptions struct {
	// IncludeExpired skips the validity-window filter (review mode).
	IncludeExpired bool
	// AsOf overrides the evaluation instant; zero means now.
	AsOf time.Time
}

// ListVisible returns the announcements currently visible to the viewer,
// ordered by priority, recency, then id as a deterministic tie-break.
func (s *VisibilityService) ListVisible(ctx context.Context, viewer models.ViewerContext, opts VisibilityOptions) ([]models.Announcement, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}

	candidates, err := s.repo.ListCandidates(ctx, candidateFilter(viewer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}

	visible := make([]models.Announcement, 0, len(candidates))
	for _, candidate := range candidates {
		scope := candidate.Scope()
		if !scope.Known() {
			// Corrupt or unmigrated targeting data: hide the row and leave
			// an audit trail instead of silently dropping it.
			s.metrics.RecordScopeFailClosed()
			s.logger.Warn("audience scope failed closed",
				zap.String("announcement_id", candidate.ID),
				zap.String("target_type", string(candidate.TargetType)))
			continue
		}
		// The repository query is only a bound on the search space; the
		// predicate is authoritative.
		if !scope.Matches(viewer) {
			continue
		}
		if !opts.IncludeExpired && !candidate.WithinWindow(asOf) {
			continue
		}
		if !candidate.IsPublished && !draftVisible(viewer, &candidate) {
			continue
		}
		visible = append(visible, candidate)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		a, b := &visible[i], &visible[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return visible, nil
}

// GetVisible loads one announcement and applies the same predicate as
// ListVisible. Rows the viewer may not see surface as not found, so the
// response never confirms an id exists.
func (s *VisibilityService) GetVisible(ctx context.Context, viewer models.ViewerContext, id string, opts VisibilityOptions) (*models.Announcement, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}

	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}

	scope := announcement.Scope()
	if !scope.Known() {
		s.metrics.RecordScopeFailClosed()
		s.logger.Warn("audience scope failed closed",
			zap.String("announcement_id", announcement.ID),
			zap.String("target_type", string(announcement.TargetType)))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	manager := viewer.Role == models.RoleAdmin || announcement.AuthorID == viewer.ID
	if !scope.Matches(viewer) && !manager {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	if !opts.IncludeExpired && !announcement.WithinWindow(asOf) && !manager {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	if !announcement.IsPublished && !draftVisible(viewer, announcement) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	return announcement, nil
}

// candidateFilter derives the broad superset bound for a viewer: public
// rows, the viewer's role-wide audience, their grade, and rows addressed to
// them directly.
func candidateFilter(viewer models.ViewerContext) models.CandidateFilter {
	filter := models.CandidateFilter{
		Kinds:    []models.ScopeKind{models.ScopePublic},
		ViewerID: viewer.ID,
	}
	switch viewer.Role {
	case models.RoleStudent:
		filter.Kinds = append(filter.Kinds, models.ScopeAllStudents)
		filter.GradeID = viewer.GradeID
	case models.RoleTeacher:
		filter.Kinds = append(filter.Kinds, models.ScopeAllTeachers)
	}
	return filter
}

// draftVisible gates unpublished items: only their author and admins may
// see them, regardless of scope eligibility.
func draftVisible(viewer models.ViewerContext, announcement *models.Announcement) bool {
	if viewer.Role == models.RoleAdmin {
		return true
	}
	return announcement.AuthorID == viewer.ID
}
