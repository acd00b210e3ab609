package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

// fakeRegistrar implements registrarClient for service tests, counting
// calls per endpoint so cache behaviour can be asserted.
type fakeRegistrar struct {
	mu sync.Mutex

	guardians []models.UpstreamGuardian
	relations []models.UpstreamStudentRelation
	academics []models.UpstreamStudentAcademic
	invoices  map[int64][]models.UpstreamInvoice

	guardiansErr error
	relationsErr error
	academicsErr error
	invoiceErrs  map[int64]error

	calls map[string]int
}

func (f *fakeRegistrar) record(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[endpoint]++
}

func (f *fakeRegistrar) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeRegistrar) FetchGuardians(context.Context, string) ([]models.UpstreamGuardian, error) {
	f.record("guardians")
	if f.guardiansErr != nil {
		return nil, f.guardiansErr
	}
	return f.guardians, nil
}

func (f *fakeRegistrar) FetchStudentRelations(context.Context, string) ([]models.UpstreamStudentRelation, error) {
	f.record("relations")
	if f.relationsErr != nil {
		return nil, f.relationsErr
	}
	return f.relations, nil
}

func (f *fakeRegistrar) FetchStudentAcademics(context.Context, string) ([]models.UpstreamStudentAcademic, error) {
	f.record("academics")
	if f.academicsErr != nil {
		return nil, f.academicsErr
	}
	return f.academics, nil
}

func (f *fakeRegistrar) FetchInvoices(_ context.Context, _ string, studentID int64) ([]models.UpstreamInvoice, error) {
	f.record("invoices")
	if err := f.invoiceErrs[studentID]; err != nil {
		return nil, err
	}
	return f.invoices[studentID], nil
}

func testTenant() models.Tenant {
	return models.Tenant{ID: "school-1", UpstreamToken: "token-1"}
}

func TestBulkServiceFetchesMissesAndCaches(t *testing.T) {
	registrar := &fakeRegistrar{
		guardians: []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
		relations: []models.UpstreamStudentRelation{{ID: 10, Name: "Bruno", MotherID: int64Ptr(1)}},
		academics: []models.UpstreamStudentAcademic{{StudentID: 10}},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewBulkService(registrar, cacheSvc, time.Hour, zap.NewNop())
	ctx := context.Background()

	data, err := svc.GetBulk(ctx, testTenant())
	require.NoError(t, err)
	assert.Len(t, data.Guardians, 1)
	assert.Len(t, data.Relations, 1)
	assert.Len(t, data.Academics, 1)

	// Second call is served entirely from cache.
	_, err = svc.GetBulk(ctx, testTenant())
	require.NoError(t, err)
	assert.Equal(t, 1, registrar.callCount("guardians"))
	assert.Equal(t, 1, registrar.callCount("relations"))
	assert.Equal(t, 1, registrar.callCount("academics"))
}

func TestBulkServiceFailsOnAnyFetchError(t *testing.T) {
	registrar := &fakeRegistrar{
		guardians:    []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
		academicsErr: appErrors.ErrUpstreamUnavailable,
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewBulkService(registrar, cacheSvc, time.Hour, zap.NewNop())

	_, err := svc.GetBulk(context.Background(), testTenant())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}

func TestBulkServiceCacheDownStillServes(t *testing.T) {
	registrar := &fakeRegistrar{
		guardians: []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
	}
	cacheSvc := NewCacheService(errorCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewBulkService(registrar, cacheSvc, time.Hour, zap.NewNop())
	ctx := context.Background()

	data, err := svc.GetBulk(ctx, testTenant())
	require.NoError(t, err)
	assert.Len(t, data.Guardians, 1)

	// Every request hits the registrar while the cache is down.
	_, err = svc.GetBulk(ctx, testTenant())
	require.NoError(t, err)
	assert.Equal(t, 2, registrar.callCount("guardians"))
}

func TestBulkServiceFetchFreshBypassesCache(t *testing.T) {
	registrar := &fakeRegistrar{
		guardians: []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
	}
	repo := &stubCacheRepo{}
	cacheSvc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := NewBulkService(registrar, cacheSvc, time.Hour, zap.NewNop())
	ctx := context.Background()

	_, err := svc.GetBulk(ctx, testTenant())
	require.NoError(t, err)
	_, err = svc.FetchFresh(ctx, testTenant())
	require.NoError(t, err)

	assert.Equal(t, 2, registrar.callCount("guardians"))
}
