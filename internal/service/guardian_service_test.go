package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

func registrarFixture() *fakeRegistrar {
	return &fakeRegistrar{
		guardians: []models.UpstreamGuardian{
			{ID: 1, Name: "Ana Lima", DocumentID: strPtr("123.456.789-00"), Email: strPtr("ana@example.com"), Phone: strPtr("11999990000")},
			{ID: 2, Name: "zilda souza", Email: strPtr("zilda@example.com")},
		},
		relations: []models.UpstreamStudentRelation{
			{ID: 10, Name: "Bruno Lima", MotherID: int64Ptr(1)},
			{ID: 11, Name: "Clara Lima", MotherID: int64Ptr(1)},
			{ID: 12, Name: "Davi Souza", PrimaryGuardianID: int64Ptr(2)},
		},
		academics: []models.UpstreamStudentAcademic{
			{StudentID: 10, CourseName: strPtr("Elementary"), GradeName: strPtr("5th"), ClassName: strPtr("5A Morning"), EnrollmentStatus: strPtr("enrolled")},
			{StudentID: 11, CourseName: strPtr("Elementary"), GradeName: strPtr("2nd"), ClassName: strPtr("2B Integral"), EnrollmentStatus: strPtr("enrolled")},
		},
		invoices: map[int64][]models.UpstreamInvoice{
			10: {
				{InvoiceNumber: "A-1", Status: models.InvoiceStatusOpen, TotalAmount: 150.5, DueDate: strPtr("2026-04-10")},
				{InvoiceNumber: "A-2", Status: models.InvoiceStatusSettled, TotalAmount: 150.5, DueDate: strPtr("2025-03-10")},
			},
			11: {
				{InvoiceNumber: "B-1", Status: models.InvoiceStatusCancelled, TotalAmount: 99, DueDate: strPtr("2026-02-01")},
			},
		},
	}
}

func newTestGuardianService(registrar *fakeRegistrar, repo CacheRepository) *GuardianService {
	cacheSvc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	bulk := NewBulkService(registrar, cacheSvc, time.Hour, zap.NewNop())
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())
	return NewGuardianService(GuardianServiceParams{
		Bulk:   bulk,
		Fanout: fanout,
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
	})
}

func TestGuardianServiceListColdThenCached(t *testing.T) {
	registrar := registrarFixture()
	svc := newTestGuardianService(registrar, &stubCacheRepo{})
	ctx := context.Background()

	page, pagination, cacheHit, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, page, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	// Sorted case-insensitively, children joined, invoices untouched.
	assert.Equal(t, "Ana Lima", page[0].Name)
	require.Len(t, page[0].Children, 2)
	assert.Equal(t, models.PeriodMorning, page[0].Children[0].Period)
	assert.Equal(t, models.PeriodFullTime, page[0].Children[1].Period)
	assert.Empty(t, page[0].Children[0].Invoices)
	assert.Equal(t, "zilda souza", page[1].Name)

	// Second call comes from the processed-list cache.
	_, _, cacheHit, err = svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, registrar.callCount("guardians"))
	// No invoice fan-out on list queries.
	assert.Equal(t, 0, registrar.callCount("invoices"))
}

func TestGuardianServiceListFiltersAndPaginates(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})
	ctx := context.Background()

	page, pagination, _, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{Search: "davi"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "zilda souza", page[0].Name)
	assert.Equal(t, 1, pagination.TotalCount)

	page, pagination, _, err = svc.List(ctx, testTenant(), dto.GuardianListQuery{Page: 2, PageSize: 1, OrderBy: OrderByNameDesc})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ana Lima", page[0].Name)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestGuardianServiceListValidation(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})
	ctx := context.Background()

	_, _, _, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{PageSize: 1000})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, _, err = svc.List(ctx, testTenant(), dto.GuardianListQuery{OrderBy: "email"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGuardianServiceDetailEnrichesAndCaches(t *testing.T) {
	registrar := registrarFixture()
	repo := &stubCacheRepo{}
	svc := newTestGuardianService(registrar, repo)
	ctx := context.Background()

	guardian, cacheHit, err := svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, guardian.Children, 2)
	assert.Len(t, guardian.Children[0].Invoices, 2)
	assert.Len(t, guardian.Children[1].Invoices, 1)

	// One OPEN invoice across both children.
	assert.True(t, guardian.Situation.HasOpenInvoice)
	assert.Equal(t, 1, guardian.Situation.OpenInvoiceCount)
	assert.Equal(t, 150.5, guardian.Situation.OpenInvoiceTotal)
	assert.False(t, guardian.Situation.HasMissingDoc)

	// Unfiltered details are cached.
	_, cacheHit, err = svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{})
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 2, registrar.callCount("invoices"))
}

func TestGuardianServiceDetailInvoiceFilters(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})
	ctx := context.Background()

	guardian, cacheHit, err := svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{InvoiceStatus: "settled"})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, guardian.Children, 2)
	require.Len(t, guardian.Children[0].Invoices, 1)
	assert.Equal(t, "A-2", guardian.Children[0].Invoices[0].InvoiceNumber)
	// Situation recomputed over the filtered view.
	assert.False(t, guardian.Situation.HasOpenInvoice)

	guardian, _, err = svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{AcademicYear: "2026"})
	require.NoError(t, err)
	assert.Len(t, guardian.Children[0].Invoices, 1)
	assert.True(t, guardian.Situation.HasOpenInvoice)

	// "all" disables the status filter and is cacheable.
	guardian, _, err = svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{InvoiceStatus: "all"})
	require.NoError(t, err)
	assert.Len(t, guardian.Children[0].Invoices, 2)
}

func TestGuardianServiceDetailValidation(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})
	ctx := context.Background()

	_, _, err := svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{AcademicYear: "26"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{InvoiceStatus: "overdue"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGuardianServiceDetailNotFound(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})

	_, _, err := svc.Detail(context.Background(), testTenant(), 999, dto.GuardianDetailFilters{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGuardianServiceDetailPartialFanoutFailure(t *testing.T) {
	registrar := registrarFixture()
	registrar.invoiceErrs = map[int64]error{11: appErrors.ErrUpstreamUnavailable}
	svc := newTestGuardianService(registrar, &stubCacheRepo{})

	guardian, _, err := svc.Detail(context.Background(), testTenant(), 1, dto.GuardianDetailFilters{})
	require.NoError(t, err)
	assert.Len(t, guardian.Children[0].Invoices, 2)
	require.NotNil(t, guardian.Children[1].Invoices)
	assert.Empty(t, guardian.Children[1].Invoices)
}

func TestGuardianServiceCacheDownStillServes(t *testing.T) {
	registrar := registrarFixture()
	svc := newTestGuardianService(registrar, errorCacheRepo{})
	ctx := context.Background()

	page, _, cacheHit, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Len(t, page, 2)

	guardian, _, err := svc.Detail(ctx, testTenant(), 1, dto.GuardianDetailFilters{})
	require.NoError(t, err)
	assert.True(t, guardian.Situation.HasOpenInvoice)
}

func TestGuardianServiceInvalidate(t *testing.T) {
	registrar := registrarFixture()
	svc := newTestGuardianService(registrar, &stubCacheRepo{})
	ctx := context.Background()

	_, _, _, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, testTenant()))

	_, _, cacheHit, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 2, registrar.callCount("guardians"))
}

func TestGuardianServiceStats(t *testing.T) {
	registrar := registrarFixture()
	svc := newTestGuardianService(registrar, &stubCacheRepo{})
	ctx := context.Background()

	stats, cacheHit, err := svc.Stats(ctx, testTenant())
	require.NoError(t, err)
	assert.False(t, cacheHit)

	assert.Equal(t, 2, stats.TotalGuardians)
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 1, stats.Financial.DelinquentGuardians)
	assert.Equal(t, 50.0, stats.Financial.DelinquencyRate)
	assert.Equal(t, 1, stats.Financial.OpenInvoices)
	assert.Equal(t, 150.5, stats.Financial.TotalPendingValue)
	assert.Equal(t, 1, stats.Documents.CompleteGuardians)
	assert.Equal(t, map[string]int{"mother": 1, "primary": 1}, stats.Relationships)

	_, cacheHit, err = svc.Stats(ctx, testTenant())
	require.NoError(t, err)
	assert.True(t, cacheHit)
}

func TestGuardianServiceDelinquents(t *testing.T) {
	svc := newTestGuardianService(registrarFixture(), &stubCacheRepo{})

	delinquents, err := svc.Delinquents(context.Background(), testTenant())
	require.NoError(t, err)
	require.Len(t, delinquents, 1)
	assert.Equal(t, "Ana Lima", delinquents[0].Name)
}

func TestGuardianServiceRefreshRebuildsList(t *testing.T) {
	registrar := registrarFixture()
	svc := newTestGuardianService(registrar, &stubCacheRepo{})
	ctx := context.Background()

	_, _, _, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx, testTenant()))

	// Refresh refetched the bulk datasets and rewrote the list, so the
	// next read is a hit without another registrar round-trip.
	_, _, cacheHit, err := svc.List(ctx, testTenant(), dto.GuardianListQuery{})
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 2, registrar.callCount("guardians"))
}

func TestGuardianServiceUpstreamFailurePropagates(t *testing.T) {
	registrar := registrarFixture()
	registrar.guardiansErr = appErrors.ErrUpstreamUnavailable
	svc := newTestGuardianService(registrar, &stubCacheRepo{})

	_, _, _, err := svc.List(context.Background(), testTenant(), dto.GuardianListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}
