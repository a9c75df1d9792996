package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-announce-api/internal/models"
)

const announcementColumns = `id, title, body, author_id, author_role, target_type, target_grade_id, target_student_id, target_teacher_id,
priority, is_published, requires_ack, attachment_ref, valid_from, valid_until, reminder_date, circular_number, department, created_at, updated_at`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListCandidates returns a broad role-appropriate superset of rows that
// might be visible to the viewer described by the filter. It intentionally
// over-fetches: the audience predicate is always re-applied by the caller,
// so a filtering bug here cannot widen visibility.
func (r *AnnouncementRepository) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Announcement, error) {
	clauses := []string{}
	args := []interface{}{}

	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		clauses = append(clauses, fmt.Sprintf("target_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(kinds))
	}
	if filter.GradeID != nil {
		clauses = append(clauses, fmt.Sprintf("(target_type = '%s' AND target_grade_id = $%d)", models.ScopeGrade, len(args)+1))
		args = append(args, *filter.GradeID)
	}
	if filter.ViewerID != "" {
		clauses = append(clauses, fmt.Sprintf("(target_type = '%s' AND target_student_id = $%d)", models.ScopeSpecificStudent, len(args)+1))
		args = append(args, filter.ViewerID)
		clauses = append(clauses, fmt.Sprintf("(target_type = '%s' AND target_teacher_id = $%d)", models.ScopeSpecificTeacher, len(args)+1))
		args = append(args, filter.ViewerID)
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("candidate filter selects nothing")
	}

	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE %s ORDER BY created_at DESC, id ASC`,
		announcementColumns, strings.Join(clauses, " OR "))

	var rows []models.Announcement
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list announcement candidates: %w", err)
	}
	return rows, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE id = $1`, announcementColumns)
	var row models.Announcement
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	query := `INSERT INTO announcements (id, title, body, author_id, author_role, target_type, target_grade_id, target_student_id, target_teacher_id,
priority, is_published, requires_ack, attachment_ref, valid_from, valid_until, reminder_date, circular_number, department, created_at, updated_at)
VALUES (:id, :title, :body, :author_id, :author_role, :target_type, :target_grade_id, :target_student_id, :target_teacher_id,
:priority, :is_published, :requires_ack, :attachment_ref, :valid_from, :valid_until, :reminder_date, :circular_number, :department, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement. The author and creation
// timestamp never change.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	query := `UPDATE announcements SET title = :title, body = :body, target_type = :target_type, target_grade_id = :target_grade_id,
target_student_id = :target_student_id, target_teacher_id = :target_teacher_id, priority = :priority, is_published = :is_published,
requires_ack = :requires_ack, attachment_ref = :attachment_ref, valid_from = :valid_from, valid_until = :valid_until,
reminder_date = :reminder_date, circular_number = :circular_number, department = :department, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, announcement)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an announcement. Read receipts cascade at the schema level.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
