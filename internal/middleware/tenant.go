package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
	"github.com/noah-isme/guardian-portal-api/pkg/response"
)

// Context keys set by the tenant middleware.
const (
	ContextUserKey   = "currentUser"
	ContextTenantKey = "currentTenant"
)

type tokenValidator interface {
	ValidateToken(raw string) (*models.StaffClaims, error)
}

type schoolDirectory interface {
	FindSchoolByID(ctx context.Context, id string) (*models.School, error)
}

// Tenant protects routes by requiring a valid staff token and resolves
// the caller's school into a tenant scope. Every handler behind it can
// assume a tenant is present on the context.
func Tenant(auth tokenValidator, schools schoolDirectory, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		school, err := schools.FindSchoolByID(c.Request.Context(), claims.SchoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unknown school scope"))
			} else {
				logger.Error("failed to resolve school", zap.String("school_id", claims.SchoolID), zap.Error(err))
				response.Error(c, appErrors.ErrInternal)
			}
			c.Abort()
			return
		}
		if !school.Active {
			response.Error(c, appErrors.ErrInactiveSchool)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextTenantKey, models.Tenant{ID: school.ID, UpstreamToken: school.UpstreamToken})
		c.Next()
	}
}
