package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

// GuardianServiceConfig tunes caching and pagination behaviour.
type GuardianServiceConfig struct {
	ListTTL         time.Duration
	DetailTTL       time.Duration
	StatsTTL        time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// GuardianServiceParams groups constructor dependencies.
type GuardianServiceParams struct {
	Bulk   *BulkService
	Fanout *InvoiceFanout
	Cache  *CacheService
	Logger *zap.Logger
	Config GuardianServiceConfig
}

// GuardianService is the public entry point of the aggregation core:
// list, detail, stats and invalidation over the guardian-centric view.
type GuardianService struct {
	bulk   *BulkService
	fanout *InvoiceFanout
	cache  *CacheService
	logger *zap.Logger
	cfg    GuardianServiceConfig
	now    func() time.Time
}

// NewGuardianService constructs a GuardianService with sane defaults.
func NewGuardianService(params GuardianServiceParams) *GuardianService {
	cfg := params.Config
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 2 * time.Hour
	}
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = 6 * time.Hour
	}
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 15 * time.Minute
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{
		bulk:   params.Bulk,
		fanout: params.Fanout,
		cache:  params.Cache,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// List returns one page of the filtered guardian view. Children carry
// no invoices here and situations stay zeroed; detail queries pay the
// fan-out cost instead. The second bool reports cache utilisation.
func (s *GuardianService) List(ctx context.Context, tenant models.Tenant, query dto.GuardianListQuery) ([]models.Guardian, *models.Pagination, bool, error) {
	query, err := s.normalizeListQuery(query)
	if err != nil {
		return nil, nil, false, err
	}

	list, cacheHit, err := s.processedList(ctx, tenant)
	if err != nil {
		return nil, nil, false, err
	}

	filtered := ApplyFilters(list.Guardians, query)
	SortGuardians(filtered, query.OrderBy)
	page, pagination := Paginate(filtered, query.Page, query.PageSize)
	return page, pagination, cacheHit, nil
}

// Detail returns one guardian fully enriched with invoices. The detail
// cache is only consulted and populated when no invoice filter applies.
func (s *GuardianService) Detail(ctx context.Context, tenant models.Tenant, guardianID int64, filters dto.GuardianDetailFilters) (*models.Guardian, bool, error) {
	filters, err := normalizeDetailFilters(filters)
	if err != nil {
		return nil, false, err
	}

	cacheable := filters.Empty()
	detailKey := guardianDetailKey(guardianID, tenant.ID)
	if cacheable {
		var cached models.Guardian
		if s.cache.Get(ctx, detailKey, &cached) {
			return &cached, true, nil
		}
	}

	list, _, err := s.processedList(ctx, tenant)
	if err != nil {
		return nil, false, err
	}

	var guardian *models.Guardian
	for i := range list.Guardians {
		if list.Guardians[i].ID == guardianID {
			guardian = &list.Guardians[i]
			break
		}
	}
	if guardian == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
	}

	studentIDs := make([]int64, 0, len(guardian.Children))
	for _, child := range guardian.Children {
		studentIDs = append(studentIDs, child.ID)
	}

	invoicesByStudent, err := s.fanout.FetchMany(ctx, tenant, studentIDs)
	if err != nil {
		return nil, false, err
	}

	enriched := Enrich(*guardian, invoicesByStudent)
	if !cacheable {
		enriched = filterInvoices(enriched, filters)
		return &enriched, false, nil
	}

	s.cache.Set(ctx, detailKey, enriched, s.cfg.DetailTTL)
	return &enriched, false, nil
}

// Stats returns aggregate counters over the enriched list view.
func (s *GuardianService) Stats(ctx context.Context, tenant models.Tenant) (*dto.GuardianStats, bool, error) {
	key := statsKey(tenant.ID)
	var cached dto.GuardianStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	enriched, generatedAt, invoicesByStudent, err := s.enrichedList(ctx, tenant)
	if err != nil {
		return nil, false, err
	}

	stats := buildStats(enriched, invoicesByStudent, generatedAt)
	s.cache.Set(ctx, key, stats, s.cfg.StatsTTL)
	return stats, false, nil
}

// Delinquents returns the enriched guardians that currently have at
// least one open invoice. Used by the export surface.
func (s *GuardianService) Delinquents(ctx context.Context, tenant models.Tenant) ([]models.Guardian, error) {
	enriched, _, _, err := s.enrichedList(ctx, tenant)
	if err != nil {
		return nil, err
	}
	delinquent := make([]models.Guardian, 0)
	for _, guardian := range enriched {
		if guardian.Situation.HasOpenInvoice {
			delinquent = append(delinquent, guardian)
		}
	}
	return delinquent, nil
}

// Invalidate drops the processed list, the three bulk datasets and the
// stats snapshot for the tenant. Guardian details expire naturally.
func (s *GuardianService) Invalidate(ctx context.Context, tenant models.Tenant) error {
	s.cache.Delete(ctx, bulkRelationsKey(tenant.ID))
	s.cache.Delete(ctx, bulkAcademicsKey(tenant.ID))
	s.cache.DeletePrefix(ctx, guardianViewPattern(tenant.ID))
	s.logger.Info("guardian cache invalidated", zap.String("tenant_id", tenant.ID))
	return nil
}

// Refresh re-fetches the bulk datasets from the registrar and rebuilds
// the processed list, bypassing still-valid cache entries. Driven by
// the periodic refresh loop.
func (s *GuardianService) Refresh(ctx context.Context, tenant models.Tenant) error {
	data, err := s.bulk.FetchFresh(ctx, tenant)
	if err != nil {
		return err
	}
	list := models.ProcessedList{
		Guardians: Aggregate(AggregateInput{
			Guardians:   data.Guardians,
			Relations:   data.Relations,
			Academics:   data.Academics,
			GeneratedAt: s.now().UTC(),
		}),
		GeneratedAt: s.now().UTC(),
	}
	s.cache.Set(ctx, processedListKey(tenant.ID), list, s.cfg.ListTTL)
	s.cache.Delete(ctx, statsKey(tenant.ID))
	return nil
}

// processedList read-throughs the aggregated view for the tenant.
func (s *GuardianService) processedList(ctx context.Context, tenant models.Tenant) (*models.ProcessedList, bool, error) {
	key := processedListKey(tenant.ID)
	var cached models.ProcessedList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	data, err := s.bulk.GetBulk(ctx, tenant)
	if err != nil {
		return nil, false, err
	}

	generatedAt := s.now().UTC()
	list := models.ProcessedList{
		Guardians: Aggregate(AggregateInput{
			Guardians:   data.Guardians,
			Relations:   data.Relations,
			Academics:   data.Academics,
			GeneratedAt: generatedAt,
		}),
		GeneratedAt: generatedAt,
	}
	s.cache.Set(ctx, key, list, s.cfg.ListTTL)
	return &list, false, nil
}

// enrichedList fans out invoices for every student in the tenant and
// enriches each guardian.
func (s *GuardianService) enrichedList(ctx context.Context, tenant models.Tenant) ([]models.Guardian, time.Time, map[int64][]models.Invoice, error) {
	list, _, err := s.processedList(ctx, tenant)
	if err != nil {
		return nil, time.Time{}, nil, err
	}

	var studentIDs []int64
	for _, guardian := range list.Guardians {
		for _, child := range guardian.Children {
			studentIDs = append(studentIDs, child.ID)
		}
	}

	invoicesByStudent, err := s.fanout.FetchMany(ctx, tenant, studentIDs)
	if err != nil {
		return nil, time.Time{}, nil, err
	}

	enriched := make([]models.Guardian, 0, len(list.Guardians))
	for _, guardian := range list.Guardians {
		enriched = append(enriched, Enrich(guardian, invoicesByStudent))
	}
	return enriched, list.GeneratedAt, invoicesByStudent, nil
}

func (s *GuardianService) normalizeListQuery(query dto.GuardianListQuery) (dto.GuardianListQuery, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = s.cfg.DefaultPageSize
	}
	if query.PageSize > s.cfg.MaxPageSize {
		return query, appErrors.Clone(appErrors.ErrValidation, "page_size exceeds maximum")
	}
	switch query.OrderBy {
	case "", OrderByNameAsc, OrderByNameDesc:
	default:
		return query, appErrors.Clone(appErrors.ErrValidation, "order_by must be name or -name")
	}
	return query, nil
}

var academicYearPattern = regexp.MustCompile(`^\d{4}$`)

func normalizeDetailFilters(filters dto.GuardianDetailFilters) (dto.GuardianDetailFilters, error) {
	filters.AcademicYear = strings.TrimSpace(filters.AcademicYear)
	if filters.AcademicYear != "" && !academicYearPattern.MatchString(filters.AcademicYear) {
		return filters, appErrors.Clone(appErrors.ErrValidation, "academic_year must be a four digit year")
	}

	status := strings.TrimSpace(filters.InvoiceStatus)
	if strings.EqualFold(status, dto.InvoiceStatusAll) {
		filters.InvoiceStatus = dto.InvoiceStatusAll
		return filters, nil
	}
	status = strings.ToUpper(status)
	switch status {
	case "", models.InvoiceStatusOpen, models.InvoiceStatusSettled, models.InvoiceStatusCancelled:
		filters.InvoiceStatus = status
	default:
		return filters, appErrors.Clone(appErrors.ErrValidation, "invoice_status must be OPEN, SETTLED, CANCELLED or all")
	}
	return filters, nil
}

// filterInvoices narrows each child's invoices and recomputes the
// situation over the filtered view.
func filterInvoices(guardian models.Guardian, filters dto.GuardianDetailFilters) models.Guardian {
	children := make([]models.Child, len(guardian.Children))
	copy(children, guardian.Children)
	for i := range children {
		kept := make([]models.Invoice, 0, len(children[i].Invoices))
		for _, invoice := range children[i].Invoices {
			if filters.AcademicYear != "" {
				if invoice.DueDate == nil || !strings.HasPrefix(*invoice.DueDate, filters.AcademicYear) {
					continue
				}
			}
			if filters.InvoiceStatus != "" && filters.InvoiceStatus != dto.InvoiceStatusAll && invoice.Status != filters.InvoiceStatus {
				continue
			}
			kept = append(kept, invoice)
		}
		children[i].Invoices = kept
	}
	guardian.Children = children
	guardian.Situation = ComputeSituation(guardian)
	return guardian
}

// buildStats computes the aggregate counters. Financial totals are
// summed over unique students so a child shared by two guardians is not
// counted twice.
func buildStats(guardians []models.Guardian, invoicesByStudent map[int64][]models.Invoice, generatedAt time.Time) *dto.GuardianStats {
	stats := &dto.GuardianStats{
		TotalGuardians: len(guardians),
		Relationships:  make(map[string]int),
		LastUpdated:    generatedAt,
	}

	students := make(map[int64]bool)
	for _, guardian := range guardians {
		stats.Relationships[guardian.Relationship.Code]++
		if guardian.Situation.HasOpenInvoice {
			stats.Financial.DelinquentGuardians++
		}
		if len(guardian.Documents) == 3 {
			stats.Documents.CompleteGuardians++
		}
		for _, child := range guardian.Children {
			students[child.ID] = true
		}
	}
	stats.TotalStudents = len(students)

	var pending float64
	for _, invoices := range invoicesByStudent {
		for _, invoice := range invoices {
			if invoice.Status != models.InvoiceStatusOpen {
				continue
			}
			stats.Financial.OpenInvoices++
			pending += invoice.TotalAmount
		}
	}
	stats.Financial.TotalPendingValue = roundHalfUp(pending)

	if stats.TotalGuardians > 0 {
		stats.Financial.DelinquencyRate = roundHalfUp(float64(stats.Financial.DelinquentGuardians) / float64(stats.TotalGuardians) * 100)
		stats.Documents.CompletenessRate = roundHalfUp(float64(stats.Documents.CompleteGuardians) / float64(stats.TotalGuardians) * 100)
	}
	return stats
}
