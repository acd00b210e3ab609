package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/middleware"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
	"github.com/noah-isme/guardian-portal-api/pkg/response"
)

type guardianService interface {
	List(ctx context.Context, tenant models.Tenant, query dto.GuardianListQuery) ([]models.Guardian, *models.Pagination, bool, error)
	Detail(ctx context.Context, tenant models.Tenant, guardianID int64, filters dto.GuardianDetailFilters) (*models.Guardian, bool, error)
	Stats(ctx context.Context, tenant models.Tenant) (*dto.GuardianStats, bool, error)
	Invalidate(ctx context.Context, tenant models.Tenant) error
}

// GuardianHandler wires the guardian aggregation service to HTTP endpoints.
type GuardianHandler struct {
	service guardianService
}

// NewGuardianHandler constructs the handler.
func NewGuardianHandler(service guardianService) *GuardianHandler {
	return &GuardianHandler{service: service}
}

// List godoc
// @Summary List guardians
// @Description Paginated, filterable guardian view for the caller's school
// @Tags Guardians
// @Produce json
// @Param search query string false "Free-text search over names, email, document, phone and children"
// @Param email query string false "Exact email match (case-insensitive)"
// @Param document_id query string false "Document match ignoring punctuation"
// @Param phone query string false "Phone match ignoring formatting"
// @Param has_open_invoice query bool false "Filter by open-invoice flag"
// @Param has_missing_doc query bool false "Filter by missing-document flag"
// @Param order_by query string false "Sort key: name or -name"
// @Param page query int false "1-indexed page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /guardians [get]
func (h *GuardianHandler) List(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query, err := parseListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	guardians, pagination, cacheHit, err := h.service.List(c.Request.Context(), tenant, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, guardians, pagination, meta)
}

// Detail godoc
// @Summary Guardian detail
// @Description One guardian with children invoices attached, optionally filtered
// @Tags Guardians
// @Produce json
// @Param id path int true "Guardian ID"
// @Param academic_year query string false "Keep only invoices due in this year (YYYY)"
// @Param invoice_status query string false "Keep only invoices with this status, or 'all'"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /guardians/{id} [get]
func (h *GuardianHandler) Detail(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	guardianID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || guardianID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "guardian id must be a positive integer"))
		return
	}

	filters := dto.GuardianDetailFilters{
		AcademicYear:  strings.TrimSpace(c.Query("academic_year")),
		InvoiceStatus: strings.TrimSpace(c.Query("invoice_status")),
	}

	start := time.Now()
	guardian, cacheHit, err := h.service.Detail(c.Request.Context(), tenant, guardianID, filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, guardian, nil, meta)
}

// Stats godoc
// @Summary Guardian statistics
// @Description Aggregate delinquency, document and relationship counters
// @Tags Guardians
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /guardians/stats [get]
func (h *GuardianHandler) Stats(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, cacheHit, err := h.service.Stats(c.Request.Context(), tenant)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Invalidate godoc
// @Summary Invalidate cached guardian data
// @Description Drops the tenant's cached registrar datasets and processed views
// @Tags Guardians
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /guardians/cache/invalidate [post]
func (h *GuardianHandler) Invalidate(c *gin.Context) {
	tenant, ok := tenantFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Invalidate(c.Request.Context(), tenant); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseListQuery(c *gin.Context) (dto.GuardianListQuery, error) {
	query := dto.GuardianListQuery{
		Search:     strings.TrimSpace(c.Query("search")),
		Email:      strings.TrimSpace(c.Query("email")),
		DocumentID: strings.TrimSpace(c.Query("document_id")),
		Phone:      strings.TrimSpace(c.Query("phone")),
		OrderBy:    strings.TrimSpace(c.Query("order_by")),
	}

	var err error
	if query.HasOpenInvoice, err = parseBoolParam(c, "has_open_invoice"); err != nil {
		return query, err
	}
	if query.HasMissingDoc, err = parseBoolParam(c, "has_missing_doc"); err != nil {
		return query, err
	}
	if query.Page, err = parseIntParam(c, "page"); err != nil {
		return query, err
	}
	if query.PageSize, err = parseIntParam(c, "page_size"); err != nil {
		return query, err
	}
	return query, nil
}

func parseBoolParam(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be true or false")
	}
	return &value, nil
}

func parseIntParam(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a non-negative integer")
	}
	return value, nil
}
