package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-announce-api/internal/dto"
	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/internal/repository"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
	"github.com/noah-isme/sma-announce-api/pkg/jobs"
	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

type ackReportStore interface {
	Create(ctx context.Context, job *models.AckReportJob) error
	GetByID(ctx context.Context, id string) (*models.AckReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateAckReportParams) error
	ListQueued(ctx context.Context, limit int) ([]models.AckReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AckReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// AckReportServiceConfig governs result retention.
type AckReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	DownloadBaseURL string
}

// AckReportService orchestrates asynchronous acknowledgement-report jobs
// for must-read announcements.
type AckReportService struct {
	repo          ackReportStore
	announcements announcementRepository
	receipts      receiptRepository
	queue         jobDispatcher
	exporter      *ExportService
	signer        *storage.SignedURLSigner
	files         *storage.LocalStorage
	logger        *zap.Logger
	cfg           AckReportServiceConfig
}

// AckReportDownload aggregates resolved download data.
type AckReportDownload struct {
	File     *os.File
	Filename string
	Format   models.AckReportFormat
}

// NewAckReportService constructs the service.
func NewAckReportService(repo ackReportStore, announcements announcementRepository, receipts receiptRepository, queue jobDispatcher, exporter *ExportService, signer *storage.SignedURLSigner, files *storage.LocalStorage, logger *zap.Logger, cfg AckReportServiceConfig) *AckReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DownloadBaseURL == "" {
		cfg.DownloadBaseURL = "/api/v1/ack-reports"
	}
	return &AckReportService{
		repo:          repo,
		announcements: announcements,
		receipts:      receipts,
		queue:         queue,
		exporter:      exporter,
		signer:        signer,
		files:         files,
		logger:        logger,
		cfg:           cfg,
	}
}

// CreateJob validates the request, persists the job, and enqueues it.
func (s *AckReportService) CreateJob(ctx context.Context, actor models.ViewerContext, announcementID string, req dto.AckReportRequest) (*dto.AckReportJobResponse, error) {
	format := models.AckReportFormat(strings.ToUpper(strings.TrimSpace(req.Format)))
	if format != models.AckReportFormatCSV && format != models.AckReportFormatPDF {
		return nil, appErrors.Validation("format", "must be CSV or PDF")
	}

	announcement, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if !canManage(actor, announcement) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if !announcement.RequiresAck {
		return nil, appErrors.Validation("requires_ack", "announcement does not require acknowledgement")
	}

	job := &models.AckReportJob{
		Params:      models.AckReportParams{AnnouncementID: announcementID, Format: format},
		Status:      models.AckReportStatusQueued,
		RequestedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ack report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "ack_report"}); err != nil {
		s.failJob(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue ack report job")
	}
	return &dto.AckReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job state, enforcing ownership for non-admins. The
// download URL appears once the job has finished.
func (s *AckReportService) GetStatus(ctx context.Context, actor models.ViewerContext, id string) (*dto.AckReportStatusResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && job.RequestedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	resp := &dto.AckReportStatusResponse{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
	}
	if job.Status == models.AckReportStatusDone && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		url := fmt.Sprintf("%s/%s/download?token=%s", s.cfg.DownloadBaseURL, job.ID, token)
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *AckReportService) ResolveDownload(ctx context.Context, id, token string) (*AckReportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil || jobID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.AckReportStatusDone || job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report not available")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report expired")
	}
	ext := strings.ToLower(string(job.Params.Format))
	return &AckReportDownload{
		File:     file,
		Filename: fmt.Sprintf("acknowledgements-%s.%s", job.Params.AnnouncementID, ext),
		Format:   job.Params.Format,
	}, nil
}

// Process is the queue handler: it renders and stores one report.
func (s *AckReportService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.loadJob(ctx, queued.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	running := models.AckReportStatusRunning
	progress := 10
	if err := s.repo.Update(ctx, job.ID, repository.UpdateAckReportParams{Status: &running, Progress: &progress, StartedAt: &now}); err != nil {
		return err
	}

	announcement, err := s.announcements.GetByID(ctx, job.Params.AnnouncementID)
	if err != nil {
		s.failJob(ctx, job.ID, "announcement no longer exists")
		return nil
	}
	receipts, err := s.receipts.ListByAnnouncement(ctx, job.Params.AnnouncementID)
	if err != nil {
		s.failJob(ctx, job.ID, "failed to load receipts")
		return err
	}
	relPath, err := s.exporter.Generate(job.ID, announcement, receipts, job.Params.Format)
	if err != nil {
		s.failJob(ctx, job.ID, "failed to render report")
		return err
	}

	done := models.AckReportStatusDone
	full := 100
	finished := time.Now().UTC()
	if err := s.repo.Update(ctx, job.ID, repository.UpdateAckReportParams{
		Status:     &done,
		Progress:   &full,
		FilePath:   &relPath,
		FinishedAt: &finished,
	}); err != nil {
		return err
	}
	s.logger.Info("ack report generated",
		zap.String("job_id", job.ID),
		zap.String("announcement_id", job.Params.AnnouncementID),
		zap.Int("receipts", len(receipts)))
	return nil
}

// RecoverQueued re-enqueues jobs left behind by a previous process.
func (s *AckReportService) RecoverQueued(ctx context.Context) error {
	queued, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		return err
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "ack_report"}); err != nil {
			return err
		}
	}
	return nil
}

// StartCleanup periodically removes result files past their TTL.
func (s *AckReportService) StartCleanup(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *AckReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 50)
	if err != nil {
		s.logger.Warn("ack report cleanup query failed", zap.Error(err))
		return
	}
	for _, job := range expired {
		if job.FilePath == nil {
			continue
		}
		if err := s.files.Delete(*job.FilePath); err != nil {
			s.logger.Warn("ack report file delete failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		cleared := ""
		if err := s.repo.Update(ctx, job.ID, repository.UpdateAckReportParams{FilePath: &cleared}); err != nil {
			s.logger.Warn("ack report cleanup update failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

func (s *AckReportService) loadJob(ctx context.Context, id string) (*models.AckReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ack report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ack report job")
	}
	return job, nil
}

func (s *AckReportService) failJob(ctx context.Context, id, message string) {
	failed := models.AckReportStatusFailed
	full := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateAckReportParams{
		Status:       &failed,
		Progress:     &full,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Error("failed to mark ack report job failed", zap.String("job_id", id), zap.Error(err))
	}
}
