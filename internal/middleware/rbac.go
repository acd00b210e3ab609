package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
	"github.com/noah-isme/guardian-portal-api/pkg/response"
)

// RequireRoles restricts a route to staff carrying one of the given
// roles. Must run after the tenant middleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
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
		claims, ok := claimsValue.(*models.StaffClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
