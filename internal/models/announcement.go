package models

import "time"

// Priority orders announcements independently of recency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank maps priorities onto a sortable ordinal. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

// Announcement represents a persisted announcement row. The audience scope
// is stored as a discriminator column plus nullable kind-specific targets.
type Announcement struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Body            string     `db:"body" json:"body"`
	AuthorID        string     `db:"author_id" json:"author_id"`
	AuthorRole      UserRole   `db:"author_role" json:"author_role"`
	TargetType      ScopeKind  `db:"target_type" json:"target_type"`
	TargetGradeID   *string    `db:"target_grade_id" json:"target_grade_id,omitempty"`
	TargetStudentID *string    `db:"target_student_id" json:"target_student_id,omitempty"`
	TargetTeacherID *string    `db:"target_teacher_id" json:"target_teacher_id,omitempty"`
	Priority        Priority   `db:"priority" json:"priority"`
	IsPublished     bool       `db:"is_published" json:"is_published"`
	RequiresAck     bool       `db:"requires_ack" json:"requires_ack"`
	AttachmentRef   *string    `db:"attachment_ref" json:"attachment_ref,omitempty"`
	ValidFrom       *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil      *time.Time `db:"valid_until" json:"valid_until,omitempty"`
	ReminderDate    *time.Time `db:"reminder_date" json:"reminder_date,omitempty"`
	CircularNumber  *string    `db:"circular_number" json:"circular_number,omitempty"`
	Department      *string    `db:"department" json:"department,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Scope assembles the tagged-union view over the flattened columns.
func (a *Announcement) Scope() AudienceScope {
	return AudienceScope{
		Kind:      a.TargetType,
		GradeID:   a.TargetGradeID,
		StudentID: a.TargetStudentID,
		TeacherID: a.TargetTeacherID,
	}
}

// SetScope flattens a scope back onto the persisted columns, clearing the
// targets that do not belong to the active kind.
func (a *Announcement) SetScope(scope AudienceScope) {
	a.TargetType = scope.Kind
	a.TargetGradeID, a.TargetStudentID, a.TargetTeacherID = nil, nil, nil
	switch scope.Kind {
	case ScopeGrade:
		a.TargetGradeID = scope.GradeID
	case ScopeSpecificStudent:
		a.TargetStudentID = scope.StudentID
	case ScopeSpecificTeacher:
		a.TargetTeacherID = scope.TeacherID
	}
}

// Expired reports whether the validity window has closed at the given instant.
func (a *Announcement) Expired(asOf time.Time) bool {
	return a.ValidUntil != nil && asOf.After(*a.ValidUntil)
}

// WithinWindow reports whether the announcement is inside its validity
// window at the given instant. An absent bound is unbounded.
func (a *Announcement) WithinWindow(asOf time.Time) bool {
	if a.ValidFrom != nil && asOf.Before(*a.ValidFrom) {
		return false
	}
	return !a.Expired(asOf)
}

// CandidateFilter bounds the repository superset query for a viewer. The
// repository result is never authoritative; the scope predicate is always
// re-applied by the visibility service.
type CandidateFilter struct {
	Kinds    []ScopeKind
	GradeID  *string
	ViewerID string
}
