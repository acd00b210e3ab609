package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

func TestInvoiceFanoutFetchesAndNormalizes(t *testing.T) {
	registrar := &fakeRegistrar{
		invoices: map[int64][]models.UpstreamInvoice{
			10: {{InvoiceNumber: "A-1", Status: models.InvoiceStatusOpen, TotalAmount: 100}},
			11: {{InvoiceNumber: "B-1", Status: models.InvoiceStatusSettled, TotalAmount: 50}},
		},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())

	result, err := fanout.FetchMany(context.Background(), testTenant(), []int64{10, 11})
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Len(t, result[10], 1)
	assert.Equal(t, "Open", result[10][0].StatusDisplay)
	assert.Equal(t, "Settled", result[11][0].StatusDisplay)
}

func TestInvoiceFanoutDeduplicatesStudents(t *testing.T) {
	registrar := &fakeRegistrar{
		invoices: map[int64][]models.UpstreamInvoice{10: {}},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())

	result, err := fanout.FetchMany(context.Background(), testTenant(), []int64{10, 10, 10})
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, 1, registrar.callCount("invoices"))
}

func TestInvoiceFanoutPartialFailureDegradesToEmptyList(t *testing.T) {
	registrar := &fakeRegistrar{
		invoices: map[int64][]models.UpstreamInvoice{
			10: {{InvoiceNumber: "A-1", Status: models.InvoiceStatusOpen, TotalAmount: 100}},
		},
		invoiceErrs: map[int64]error{11: appErrors.ErrUpstreamUnavailable},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())

	result, err := fanout.FetchMany(context.Background(), testTenant(), []int64{10, 11})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Len(t, result[10], 1)
	require.NotNil(t, result[11])
	assert.Empty(t, result[11])
}

func TestInvoiceFanoutUnauthorizedIsFatal(t *testing.T) {
	registrar := &fakeRegistrar{
		invoiceErrs: map[int64]error{10: appErrors.ErrUnauthorized},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())

	_, err := fanout.FetchMany(context.Background(), testTenant(), []int64{10, 11})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestInvoiceFanoutUsesPerStudentCache(t *testing.T) {
	registrar := &fakeRegistrar{
		invoices: map[int64][]models.UpstreamInvoice{
			10: {{InvoiceNumber: "A-1", Status: models.InvoiceStatusOpen, TotalAmount: 100}},
		},
	}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(registrar, cacheSvc, nil, 4, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := fanout.FetchMany(ctx, testTenant(), []int64{10})
	require.NoError(t, err)
	result, err := fanout.FetchMany(ctx, testTenant(), []int64{10})
	require.NoError(t, err)

	assert.Equal(t, 1, registrar.callCount("invoices"))
	assert.Len(t, result[10], 1)
}

func TestInvoiceFanoutEmptyInput(t *testing.T) {
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	fanout := NewInvoiceFanout(&fakeRegistrar{}, cacheSvc, nil, 4, time.Minute, zap.NewNop())

	result, err := fanout.FetchMany(context.Background(), testTenant(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}
