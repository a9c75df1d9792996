package models

import "github.com/golang-jwt/jwt/v5"

// UserRole classifies platform identities.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// ViewerContext is the authenticated identity every visibility decision
// runs against. GradeID is set for students only.
type ViewerContext struct {
	ID      string   `json:"id"`
	Role    UserRole `json:"role"`
	GradeID *string  `json:"grade_id,omitempty"`
}

// JWTClaims is the access-token payload issued by the platform identity
// provider.
type JWTClaims struct {
	UserID  string   `json:"user_id"`
	Role    UserRole `json:"role"`
	GradeID *string  `json:"grade_id,omitempty"`
	jwt.RegisteredClaims
}

// Viewer derives the request's ViewerContext from the claims.
func (c *JWTClaims) Viewer() ViewerContext {
	return ViewerContext{ID: c.UserID, Role: c.Role, GradeID: c.GradeID}
}

// Pagination carries page metadata in the response envelope.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
