package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
)

// registrarClient is the slice of the upstream client the services need.
type registrarClient interface {
	FetchGuardians(ctx context.Context, token string) ([]models.UpstreamGuardian, error)
	FetchStudentRelations(ctx context.Context, token string) ([]models.UpstreamStudentRelation, error)
	FetchStudentAcademics(ctx context.Context, token string) ([]models.UpstreamStudentAcademic, error)
	FetchInvoices(ctx context.Context, token string, studentID int64) ([]models.UpstreamInvoice, error)
}

// BulkData bundles the three tenant-wide registrar datasets.
type BulkData struct {
	Guardians []models.UpstreamGuardian
	Relations []models.UpstreamStudentRelation
	Academics []models.UpstreamStudentAcademic
}

// BulkService read-throughs the three bulk registrar datasets per
// tenant. Misses are fetched concurrently; any fetch error fails the
// composite so callers never see a partial snapshot.
type BulkService struct {
	upstream registrarClient
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewBulkService constructs a bulk fetcher.
func NewBulkService(upstream registrarClient, cache *CacheService, ttl time.Duration, logger *zap.Logger) *BulkService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{upstream: upstream, cache: cache, ttl: ttl, logger: logger}
}

// GetBulk returns the three datasets, reading through the cache.
func (s *BulkService) GetBulk(ctx context.Context, tenant models.Tenant) (*BulkData, error) {
	data := &BulkData{}

	guardiansHit := s.cache.Get(ctx, bulkGuardiansKey(tenant.ID), &data.Guardians)
	relationsHit := s.cache.Get(ctx, bulkRelationsKey(tenant.ID), &data.Relations)
	academicsHit := s.cache.Get(ctx, bulkAcademicsKey(tenant.ID), &data.Academics)

	var fetchers []func(context.Context) error
	if !guardiansHit {
		fetchers = append(fetchers, func(ctx context.Context) error {
			guardians, err := s.upstream.FetchGuardians(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Guardians = guardians
			s.cache.Set(ctx, bulkGuardiansKey(tenant.ID), guardians, s.ttl)
			return nil
		})
	}
	if !relationsHit {
		fetchers = append(fetchers, func(ctx context.Context) error {
			relations, err := s.upstream.FetchStudentRelations(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Relations = relations
			s.cache.Set(ctx, bulkRelationsKey(tenant.ID), relations, s.ttl)
			return nil
		})
	}
	if !academicsHit {
		fetchers = append(fetchers, func(ctx context.Context) error {
			academics, err := s.upstream.FetchStudentAcademics(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Academics = academics
			s.cache.Set(ctx, bulkAcademicsKey(tenant.ID), academics, s.ttl)
			return nil
		})
	}

	if err := runParallel(ctx, fetchers); err != nil {
		return nil, err
	}
	return data, nil
}

// FetchFresh bypasses cached bulk entries, fetching all three datasets
// from the registrar and rewriting the cache. Used by the refresh loop.
func (s *BulkService) FetchFresh(ctx context.Context, tenant models.Tenant) (*BulkData, error) {
	data := &BulkData{}
	fetchers := []func(context.Context) error{
		func(ctx context.Context) error {
			guardians, err := s.upstream.FetchGuardians(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Guardians = guardians
			s.cache.Set(ctx, bulkGuardiansKey(tenant.ID), guardians, s.ttl)
			return nil
		},
		func(ctx context.Context) error {
			relations, err := s.upstream.FetchStudentRelations(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Relations = relations
			s.cache.Set(ctx, bulkRelationsKey(tenant.ID), relations, s.ttl)
			return nil
		},
		func(ctx context.Context) error {
			academics, err := s.upstream.FetchStudentAcademics(ctx, tenant.UpstreamToken)
			if err != nil {
				return err
			}
			data.Academics = academics
			s.cache.Set(ctx, bulkAcademicsKey(tenant.ID), academics, s.ttl)
			return nil
		},
	}
	if err := runParallel(ctx, fetchers); err != nil {
		return nil, err
	}
	return data, nil
}

// runParallel executes the fetchers concurrently and returns the first
// error. Each fetcher writes to its own slot, so no locking is needed
// beyond the wait.
func runParallel(ctx context.Context, fetchers []func(context.Context) error) error {
	if len(fetchers) == 0 {
		return nil
	}
	if len(fetchers) == 1 {
		return fetchers[0](ctx)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(fetchers))
	for _, fetch := range fetchers {
		wg.Add(1)
		go func(fetch func(context.Context) error) {
			defer wg.Done()
			if err := fetch(ctx); err != nil {
				errs <- err
			}
		}(fetch)
	}
	wg.Wait()
	close(errs)

	return <-errs
}
