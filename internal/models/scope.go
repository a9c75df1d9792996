package models

import "strings"

// ScopeKind discriminates the audience scope union. The set is closed:
// anything outside it fails closed at read time.
type ScopeKind string

const (
	ScopePublic          ScopeKind = "PUBLIC"
	ScopeAllStudents     ScopeKind = "ALL_STUDENTS"
	ScopeAllTeachers     ScopeKind = "ALL_TEACHERS"
	ScopeGrade           ScopeKind = "GRADE"
	ScopeSpecificStudent ScopeKind = "SPECIFIC_STUDENT"
	ScopeSpecificTeacher ScopeKind = "SPECIFIC_TEACHER"
)

// AudienceScope is the tagged-union view over an announcement's targeting
// columns. Only the target matching Kind is meaningful; the rest stay nil.
type AudienceScope struct {
	Kind      ScopeKind
	GradeID   *string
	StudentID *string
	TeacherID *string
}

// Known reports whether the kind belongs to the closed scope set.
func (s AudienceScope) Known() bool {
	switch s.Kind {
	case ScopePublic, ScopeAllStudents, ScopeAllTeachers,
		ScopeGrade, ScopeSpecificStudent, ScopeSpecificTeacher:
		return true
	}
	return false
}

// Matches reports whether the viewer belongs to this audience. The
// predicate is total: unknown kinds and missing targets return false
// rather than erroring, so corrupt rows stay hidden.
func (s AudienceScope) Matches(viewer ViewerContext) bool {
	switch s.Kind {
	case ScopePublic:
		return true
	case ScopeAllStudents:
		return viewer.Role == RoleStudent
	case ScopeAllTeachers:
		return viewer.Role == RoleTeacher
	case ScopeGrade:
		return viewer.Role == RoleStudent &&
			s.GradeID != nil && viewer.GradeID != nil &&
			*s.GradeID == *viewer.GradeID
	case ScopeSpecificStudent:
		return viewer.Role == RoleStudent &&
			s.StudentID != nil && *s.StudentID == viewer.ID
	case ScopeSpecificTeacher:
		return viewer.Role == RoleTeacher &&
			s.TeacherID != nil && *s.TeacherID == viewer.ID
	}
	return false
}

// TargetField names the column carrying this kind's target, or "" for
// kinds without one.
func (s AudienceScope) TargetField() string {
	switch s.Kind {
	case ScopeGrade:
		return "target_grade_id"
	case ScopeSpecificStudent:
		return "target_student_id"
	case ScopeSpecificTeacher:
		return "target_teacher_id"
	}
	return ""
}

// Target returns the active target id, or nil for broadcast kinds.
func (s AudienceScope) Target() *string {
	switch s.Kind {
	case ScopeGrade:
		return s.GradeID
	case ScopeSpecificStudent:
		return s.StudentID
	case ScopeSpecificTeacher:
		return s.TeacherID
	}
	return nil
}

// Label renders a short human-readable audience description.
func (s AudienceScope) Label() string {
	switch s.Kind {
	case ScopePublic:
		return "Everyone"
	case ScopeAllStudents:
		return "All students"
	case ScopeAllTeachers:
		return "All teachers"
	case ScopeGrade:
		if s.GradeID != nil {
			return "Grade " + *s.GradeID
		}
		return "Grade"
	case ScopeSpecificStudent:
		return "Direct (student)"
	case ScopeSpecificTeacher:
		return "Direct (teacher)"
	}
	return "Unknown"
}

// legacyScopeKinds maps the vocabulary used by older clients and imports
// onto the unified kinds. Normalization happens on write only; stored
// rows always carry the unified value.
var legacyScopeKinds = map[string]ScopeKind{
	"public":           ScopePublic,
	"everyone":         ScopePublic,
	"students":         ScopeAllStudents,
	"all_students":     ScopeAllStudents,
	"teachers":         ScopeAllTeachers,
	"all_teachers":     ScopeAllTeachers,
	"grade":            ScopeGrade,
	"class":            ScopeGrade,
	"specific_student": ScopeSpecificStudent,
	"student":          ScopeSpecificStudent,
	"specific_teacher": ScopeSpecificTeacher,
	"teacher":          ScopeSpecificTeacher,
}

// NormalizeScopeKind resolves a raw kind string, unified or legacy, onto
// the closed set. The second return reports whether the input was
// recognized.
func NormalizeScopeKind(raw string) (ScopeKind, bool) {
	trimmed := strings.TrimSpace(raw)
	if kind, ok := legacyScopeKinds[strings.ToLower(trimmed)]; ok {
		return kind, true
	}
	kind := AudienceScope{Kind: ScopeKind(strings.ToUpper(trimmed))}
	if kind.Known() {
		return kind.Kind, true
	}
	return "", false
}
