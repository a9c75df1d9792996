package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

const ackReportColumns = `id, params, status, progress, file_path, error_message, requested_by, created_at, started_at, finished_at`

// AckReportRepository persists acknowledgement-report job metadata.
type AckReportRepository struct {
	db *sqlx.DB
}

// NewAckReportRepository constructs the repository.
func NewAckReportRepository(db *sqlx.DB) *AckReportRepository {
	return &AckReportRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *AckReportRepository) Create(ctx context.Context, job *models.AckReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.AckReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ack_report_jobs (id, params, status, progress, file_path, error_message, requested_by, created_at, started_at, finished_at)
VALUES (:id, :params, :status, :progress, :file_path, :error_message, :requested_by, :created_at, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create ack report job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *AckReportRepository) GetByID(ctx context.Context, id string) (*models.AckReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM ack_report_jobs WHERE id = $1`, ackReportColumns)
	var job models.AckReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateAckReportParams defines the mutable job fields.
type UpdateAckReportParams struct {
	Status       *models.AckReportStatus
	Progress     *int
	FilePath     *string
	ErrorMessage *string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *AckReportRepository) Update(ctx context.Context, id string, params UpdateAckReportParams) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Progress != nil {
		set = append(set, fmt.Sprintf("progress = $%d", argPos))
		args = append(args, *params.Progress)
		argPos++
	}
	if params.FilePath != nil {
		set = append(set, fmt.Sprintf("file_path = $%d", argPos))
		args = append(args, *params.FilePath)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.StartedAt != nil {
		set = append(set, fmt.Sprintf("started_at = $%d", argPos))
		args = append(args, *params.StartedAt)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE ack_report_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update ack report job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs for cold-start recovery.
func (r *AckReportRepository) ListQueued(ctx context.Context, limit int) ([]models.AckReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM ack_report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`, ackReportColumns)
	var jobs []models.AckReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued ack report jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore returns finished jobs older than the cutoff, for
// storage cleanup.
func (r *AckReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AckReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM ack_report_jobs
WHERE status IN ('DONE', 'FAILED') AND finished_at IS NOT NULL AND finished_at < $1
ORDER BY finished_at ASC LIMIT $2`, ackReportColumns)
	var jobs []models.AckReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished ack report jobs: %w", err)
	}
	return jobs, nil
}
