package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestScopeMatchesPublic(t *testing.T) {
	scope := AudienceScope{Kind: ScopePublic}

	assert.True(t, scope.Matches(ViewerContext{ID: "s1", Role: RoleStudent}))
	assert.True(t, scope.Matches(ViewerContext{ID: "t1", Role: RoleTeacher}))
	assert.True(t, scope.Matches(ViewerContext{ID: "a1", Role: RoleAdmin}))
}

func TestScopeMatchesRolePartitions(t *testing.T) {
	students := AudienceScope{Kind: ScopeAllStudents}
	teachers := AudienceScope{Kind: ScopeAllTeachers}

	assert.True(t, students.Matches(ViewerContext{ID: "s1", Role: RoleStudent}))
	assert.False(t, students.Matches(ViewerContext{ID: "t1", Role: RoleTeacher}))
	assert.False(t, teachers.Matches(ViewerContext{ID: "s1", Role: RoleStudent}))
	assert.True(t, teachers.Matches(ViewerContext{ID: "t1", Role: RoleTeacher}))
}

func TestScopeMatchesGrade(t *testing.T) {
	scope := AudienceScope{Kind: ScopeGrade, GradeID: strPtr("grade-10")}

	assert.True(t, scope.Matches(ViewerContext{ID: "s1", Role: RoleStudent, GradeID: strPtr("grade-10")}))
	assert.False(t, scope.Matches(ViewerContext{ID: "s2", Role: RoleStudent, GradeID: strPtr("grade-11")}))
	assert.False(t, scope.Matches(ViewerContext{ID: "s3", Role: RoleStudent}))
	// A teacher never matches a grade scope, even with a grade id set.
	assert.False(t, scope.Matches(ViewerContext{ID: "t1", Role: RoleTeacher, GradeID: strPtr("grade-10")}))
}

func TestScopeMatchesGradeMissingTarget(t *testing.T) {
	scope := AudienceScope{Kind: ScopeGrade}

	assert.False(t, scope.Matches(ViewerContext{ID: "s1", Role: RoleStudent, GradeID: strPtr("grade-10")}))
}

func TestScopeMatchesSpecificViewer(t *testing.T) {
	student := AudienceScope{Kind: ScopeSpecificStudent, StudentID: strPtr("s1")}
	teacher := AudienceScope{Kind: ScopeSpecificTeacher, TeacherID: strPtr("t1")}

	assert.True(t, student.Matches(ViewerContext{ID: "s1", Role: RoleStudent}))
	assert.False(t, student.Matches(ViewerContext{ID: "s2", Role: RoleStudent}))
	// Same id under the wrong role must not match.
	assert.False(t, student.Matches(ViewerContext{ID: "s1", Role: RoleTeacher}))
	assert.True(t, teacher.Matches(ViewerContext{ID: "t1", Role: RoleTeacher}))
	assert.False(t, teacher.Matches(ViewerContext{ID: "t1", Role: RoleStudent}))
}

func TestScopeUnknownKindFailsClosed(t *testing.T) {
	scope := AudienceScope{Kind: ScopeKind("DISTRICT")}

	assert.False(t, scope.Known())
	assert.False(t, scope.Matches(ViewerContext{ID: "a1", Role: RoleAdmin}))
	assert.False(t, scope.Matches(ViewerContext{ID: "s1", Role: RoleStudent}))
}

func TestNormalizeScopeKind(t *testing.T) {
	cases := map[string]ScopeKind{
		"PUBLIC":           ScopePublic,
		"everyone":         ScopePublic,
		"students":         ScopeAllStudents,
		"ALL_STUDENTS":     ScopeAllStudents,
		"class":            ScopeGrade,
		"grade":            ScopeGrade,
		"student":          ScopeSpecificStudent,
		"SPECIFIC_TEACHER": ScopeSpecificTeacher,
		" teacher ":        ScopeSpecificTeacher,
	}
	for raw, want := range cases {
		kind, ok := NormalizeScopeKind(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, kind, raw)
	}

	_, ok := NormalizeScopeKind("district")
	assert.False(t, ok)
	_, ok = NormalizeScopeKind("")
	assert.False(t, ok)
}

func TestSetScopeClearsInactiveTargets(t *testing.T) {
	a := Announcement{
		TargetType:      ScopeSpecificStudent,
		TargetStudentID: strPtr("s1"),
	}
	a.SetScope(AudienceScope{Kind: ScopeGrade, GradeID: strPtr("grade-10")})

	assert.Equal(t, ScopeGrade, a.TargetType)
	assert.Nil(t, a.TargetStudentID)
	assert.Nil(t, a.TargetTeacherID)
	assert.Equal(t, "grade-10", *a.TargetGradeID)
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
	assert.Equal(t, -1, Priority("BOGUS").Rank())
}
