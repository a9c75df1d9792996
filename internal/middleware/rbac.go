package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-announce-api/internal/models"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
	"github.com/noah-isme/sma-announce-api/pkg/response"
)

// RequireRoles blocks requests whose authenticated role is not listed.
// Route-level gating is coarse; the services re-check ownership so the
// denial never depends on which resource was asked for.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
