package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-announce-api/internal/models"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
)

// feedSummaryCachePattern matches every cached per-viewer feed summary.
// Announcement writes invalidate the lot; visibility is recomputed fresh on
// the next read.
const feedSummaryCachePattern = "feed:summary:*"

type announcementRepository interface {
	ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService owns validated announcement writes. Reads for a
// viewer go through the VisibilityService instead.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	cache     *CacheService
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, cache *CacheService, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, validator: validate, cache: cache, logger: logger}
	svc.validator.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return models.Priority(strings.ToUpper(fl.Field().String())).Rank() >= 0
	})
	return svc
}

// ScopeInput carries the raw targeting payload. Kind accepts both the
// unified vocabulary and the legacy per-feature strings.
type ScopeInput struct {
	Kind      string  `json:"kind" validate:"required"`
	GradeID   *string `json:"grade_id,omitempty"`
	StudentID *string `json:"student_id,omitempty"`
	TeacherID *string `json:"teacher_id,omitempty"`
}

// CreateAnnouncementRequest describes the create payload.
type CreateAnnouncementRequest struct {
	Title          string     `json:"title" validate:"required"`
	Body           string     `json:"body" validate:"required"`
	Scope          ScopeInput `json:"scope" validate:"required"`
	Priority       string     `json:"priority" validate:"required,priority"`
	IsPublished    *bool      `json:"is_published,omitempty"`
	RequiresAck    bool       `json:"requires_ack"`
	AttachmentRef  *string    `json:"attachment_ref,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	ReminderDate   *time.Time `json:"reminder_date,omitempty"`
	CircularNumber *string    `json:"circular_number,omitempty"`
	Department     *string    `json:"department,omitempty"`
}

// UpdateAnnouncementRequest describes the update payload. Authorship and
// creation time are immutable.
type UpdateAnnouncementRequest struct {
	Title          string     `json:"title" validate:"required"`
	Body           string     `json:"body" validate:"required"`
	Scope          ScopeInput `json:"scope" validate:"required"`
	Priority       string     `json:"priority" validate:"required,priority"`
	IsPublished    *bool      `json:"is_published,omitempty"`
	RequiresAck    bool       `json:"requires_ack"`
	AttachmentRef  *string    `json:"attachment_ref,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	ReminderDate   *time.Time `json:"reminder_date,omitempty"`
	CircularNumber *string    `json:"circular_number,omitempty"`
	Department     *string    `json:"department,omitempty"`
}

// Create registers a new announcement authored by the actor.
func (s *AnnouncementService) Create(ctx context.Context, actor models.ViewerContext, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	scope, err := resolveScopeInput(req.Scope)
	if err != nil {
		return nil, err
	}
	if err := validateScopeForAuthor(actor.Role, scope.Kind); err != nil {
		return nil, err
	}
	if err := validateWindow(req.ValidFrom, req.ValidUntil); err != nil {
		return nil, err
	}
	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}
	if !published && actor.Role != models.RoleAdmin {
		return nil, appErrors.Validation("is_published", "only admins may create drafts")
	}

	announcement := &models.Announcement{
		Title:          req.Title,
		Body:           req.Body,
		AuthorID:       actor.ID,
		AuthorRole:     actor.Role,
		Priority:       models.Priority(strings.ToUpper(req.Priority)),
		IsPublished:    published,
		RequiresAck:    req.RequiresAck,
		AttachmentRef:  req.AttachmentRef,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		ReminderDate:   req.ReminderDate,
		CircularNumber: req.CircularNumber,
		Department:     req.Department,
	}
	announcement.SetScope(scope)

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.invalidateSummaries(ctx)
	return announcement, nil
}

// Update modifies an existing announcement. Only the author or an admin
// may edit; the denial stays generic so callers cannot probe for ids.
func (s *AnnouncementService) Update(ctx context.Context, actor models.ViewerContext, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	scope, err := resolveScopeInput(req.Scope)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(req.ValidFrom, req.ValidUntil); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if !canManage(actor, existing) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := validateScopeForAuthor(existing.AuthorRole, scope.Kind); err != nil {
		return nil, err
	}
	published := existing.IsPublished
	if req.IsPublished != nil {
		published = *req.IsPublished
	}
	if !published && existing.AuthorRole != models.RoleAdmin {
		return nil, appErrors.Validation("is_published", "only admin-authored announcements may be drafts")
	}

	existing.Title = req.Title
	existing.Body = req.Body
	existing.Priority = models.Priority(strings.ToUpper(req.Priority))
	existing.IsPublished = published
	existing.RequiresAck = req.RequiresAck
	existing.AttachmentRef = req.AttachmentRef
	existing.ValidFrom = req.ValidFrom
	existing.ValidUntil = req.ValidUntil
	existing.ReminderDate = req.ReminderDate
	existing.CircularNumber = req.CircularNumber
	existing.Department = req.Department
	existing.SetScope(scope)

	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	s.invalidateSummaries(ctx)
	return existing, nil
}

// Delete removes an announcement permanently. Receipts cascade.
func (s *AnnouncementService) Delete(ctx context.Context, actor models.ViewerContext, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if !canManage(actor, existing) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.invalidateSummaries(ctx)
	return nil
}

// Get returns an announcement by id without visibility filtering. Intended
// for management surfaces guarded by RBAC.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return announcement, nil
}

func (s *AnnouncementService) invalidateSummaries(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, feedSummaryCachePattern); err != nil {
		s.logger.Warn("feed summary invalidation failed", zap.Error(err))
	}
}

func canManage(actor models.ViewerContext, announcement *models.Announcement) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return announcement.AuthorID == actor.ID
}

// resolveScopeInput normalises the raw payload onto the closed scope set,
// rejecting unknown kinds and parameterized kinds missing their target.
// The returned error names the offending field.
func resolveScopeInput(input ScopeInput) (models.AudienceScope, error) {
	kind, ok := models.NormalizeScopeKind(input.Kind)
	if !ok {
		return models.AudienceScope{}, appErrors.Validation("scope.kind", "unknown audience scope")
	}
	scope := models.AudienceScope{Kind: kind}
	switch kind {
	case models.ScopeGrade:
		scope.GradeID = input.GradeID
	case models.ScopeSpecificStudent:
		scope.StudentID = input.StudentID
	case models.ScopeSpecificTeacher:
		scope.TeacherID = input.TeacherID
	}
	if field := scope.TargetField(); field != "" {
		if target := scope.Target(); target == nil || strings.TrimSpace(*target) == "" {
			return models.AudienceScope{}, appErrors.Validation(field, "required for "+string(kind)+" scope")
		}
	}
	return scope, nil
}

// validateScopeForAuthor keeps broadcast scopes admin-authored. Teachers
// stay on grade and direct scopes.
func validateScopeForAuthor(role models.UserRole, kind models.ScopeKind) error {
	if role == models.RoleAdmin {
		return nil
	}
	switch kind {
	case models.ScopePublic, models.ScopeAllStudents, models.ScopeAllTeachers:
		return appErrors.Validation("scope.kind", string(kind)+" requires an admin author")
	}
	return nil
}

func validateWindow(from, until *time.Time) error {
	if from != nil && until != nil && until.Before(*from) {
		return appErrors.Validation("valid_until", "must not precede valid_from")
	}
	return nil
}
