package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardian-portal-api/internal/middleware"
	"github.com/noah-isme/guardian-portal-api/internal/models"
)

func tenantFromContext(c *gin.Context) (models.Tenant, bool) {
	value, exists := c.Get(middleware.ContextTenantKey)
	if !exists {
		return models.Tenant{}, false
	}
	tenant, ok := value.(models.Tenant)
	return tenant, ok
}

func claimsFromContext(c *gin.Context) *models.StaffClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.StaffClaims)
	if !ok {
		return nil
	}
	return claims
}
