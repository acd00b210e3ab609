package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
	"github.com/noah-isme/guardian-portal-api/pkg/response"
)

type exportService interface {
	DelinquencyReport(ctx context.Context, tenant models.Tenant) ([]byte, error)
}

// ExportHandler serves downloadable reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Delinquency godoc
// @Summary Delinquency report
// @Description PDF report of guardians with open invoices
// @Tags Exports
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 502 {object} response.Envelope
// @Router /guardians/export/delinquency [get]
func (h *ExportHandler) Delinquency(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	tenant, ok := tenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.service.DelinquencyReport(c.Request.Context(), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("delinquency-%s-%s.pdf", tenant.ID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", report)
}
