package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

// InvoiceFanout fetches per-student invoices with a bounded worker
// pool. A single student failing degrades to an empty invoice list; a
// rejected tenant token aborts the whole batch.
type InvoiceFanout struct {
	upstream registrarClient
	cache    *CacheService
	metrics  *MetricsService
	workers  int
	ttl      time.Duration
	logger   *zap.Logger
}

// NewInvoiceFanout constructs a fan-out with sane defaults.
func NewInvoiceFanout(upstream registrarClient, cache *CacheService, metrics *MetricsService, workers int, ttl time.Duration, logger *zap.Logger) *InvoiceFanout {
	if workers <= 0 {
		workers = 10
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceFanout{upstream: upstream, cache: cache, metrics: metrics, workers: workers, ttl: ttl, logger: logger}
}

type fanoutResult struct {
	studentID int64
	invoices  []models.Invoice
	err       error
}

// FetchMany returns normalized invoices keyed by student id. Every
// requested student gets an entry; students whose fetch failed map to
// an empty list.
func (f *InvoiceFanout) FetchMany(ctx context.Context, tenant models.Tenant, studentIDs []int64) (map[int64][]models.Invoice, error) {
	unique := make([]int64, 0, len(studentIDs))
	seen := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	invoicesByStudent := make(map[int64][]models.Invoice, len(unique))
	if len(unique) == 0 {
		return invoicesByStudent, nil
	}
	if f.metrics != nil {
		f.metrics.ObserveFanoutBatch(len(unique))
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int64)
	results := make(chan fanoutResult)

	workers := f.workers
	if workers > len(unique) {
		workers = len(unique)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for studentID := range jobs {
				results <- f.fetchOne(workerCtx, tenant, studentID)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range unique {
			select {
			case jobs <- id:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var fatal error
	for result := range results {
		if result.err != nil {
			if errors.Is(result.err, appErrors.ErrUnauthorized) {
				if fatal == nil {
					fatal = result.err
					cancel()
				}
				continue
			}
			f.logger.Warn("invoice fetch failed, defaulting to empty list",
				zap.String("tenant_id", tenant.ID),
				zap.Int64("student_id", result.studentID),
				zap.Error(result.err))
			invoicesByStudent[result.studentID] = []models.Invoice{}
			continue
		}
		invoicesByStudent[result.studentID] = result.invoices
	}

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, id := range unique {
		if _, ok := invoicesByStudent[id]; !ok {
			invoicesByStudent[id] = []models.Invoice{}
		}
	}
	return invoicesByStudent, nil
}

func (f *InvoiceFanout) fetchOne(ctx context.Context, tenant models.Tenant, studentID int64) fanoutResult {
	key := studentInvoicesKey(tenant.ID, studentID)

	var cached []models.Invoice
	if f.cache.Get(ctx, key, &cached) {
		return fanoutResult{studentID: studentID, invoices: cached}
	}

	upstreamInvoices, err := f.upstream.FetchInvoices(ctx, tenant.UpstreamToken, studentID)
	if err != nil {
		return fanoutResult{studentID: studentID, err: err}
	}

	invoices := make([]models.Invoice, 0, len(upstreamInvoices))
	for _, raw := range upstreamInvoices {
		invoices = append(invoices, NormalizeInvoice(raw))
	}
	f.cache.Set(ctx, key, invoices, f.ttl)
	return fanoutResult{studentID: studentID, invoices: invoices}
}

// NormalizeInvoice converts a registrar invoice into the internal shape.
func NormalizeInvoice(raw models.UpstreamInvoice) models.Invoice {
	return models.Invoice{
		InvoiceNumber:  raw.InvoiceNumber,
		Bank:           raw.Bank,
		IssueDate:      raw.IssueDate,
		DueDate:        raw.DueDate,
		PaymentDate:    raw.PaymentDate,
		TotalAmount:    raw.TotalAmount,
		ReceivedAmount: raw.ReceivedAmount,
		Status:         raw.Status,
		StatusDisplay:  invoiceStatusDisplay(raw.Status),
		Installment:    raw.Installment,
		DigitableLine:  raw.DigitableLine,
		PaymentURL:     raw.PaymentURL,
	}
}

func invoiceStatusDisplay(status string) string {
	switch status {
	case models.InvoiceStatusOpen:
		return "Open"
	case models.InvoiceStatusSettled:
		return "Settled"
	case models.InvoiceStatusCancelled:
		return "Cancelled"
	default:
		return status
	}
}
