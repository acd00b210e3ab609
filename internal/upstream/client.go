package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/models"
	"github.com/noah-isme/guardian-portal-api/pkg/config"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

// Registrar endpoint paths relative to the configured base URL.
const (
	pathGuardians        = "/guardians"
	pathStudentRelations = "/student-guardians"
	pathStudentAcademics = "/student-academics"
	pathInvoices         = "/invoices"
)

// Endpoint labels used for metrics.
const (
	EndpointGuardians = "guardians"
	EndpointRelations = "student_relations"
	EndpointAcademics = "student_academics"
	EndpointInvoices  = "invoices"
)

// Metrics records upstream call outcomes. Implemented by the metrics
// service; nil disables instrumentation.
type Metrics interface {
	ObserveUpstreamRequest(endpoint, outcome string, duration time.Duration)
}

// Client provides typed access to the registrar API. Bulk endpoints are
// paginated transparently: either a naked JSON array or a
// {results, next} envelope, following next links until exhausted.
type Client struct {
	baseURL     string
	bulkTimeout time.Duration
	itemTimeout time.Duration
	httpClient  *http.Client
	metrics     Metrics
	logger      *zap.Logger
}

// NewClient constructs a registrar client.
func NewClient(cfg config.UpstreamConfig, metrics Metrics, logger *zap.Logger) *Client {
	bulkTimeout := cfg.BulkTimeout
	if bulkTimeout <= 0 {
		bulkTimeout = 30 * time.Second
	}
	itemTimeout := cfg.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		bulkTimeout: bulkTimeout,
		itemTimeout: itemTimeout,
		httpClient:  &http.Client{},
		metrics:     metrics,
		logger:      logger,
	}
}

// FetchGuardians returns the full guardian population for the token's tenant.
func (c *Client) FetchGuardians(ctx context.Context, token string) ([]models.UpstreamGuardian, error) {
	return fetchAll[models.UpstreamGuardian](ctx, c, EndpointGuardians, c.baseURL+pathGuardians, token, c.bulkTimeout)
}

// FetchStudentRelations returns all student-guardian relation records.
func (c *Client) FetchStudentRelations(ctx context.Context, token string) ([]models.UpstreamStudentRelation, error) {
	return fetchAll[models.UpstreamStudentRelation](ctx, c, EndpointRelations, c.baseURL+pathStudentRelations, token, c.bulkTimeout)
}

// FetchStudentAcademics returns all academic placement records.
func (c *Client) FetchStudentAcademics(ctx context.Context, token string) ([]models.UpstreamStudentAcademic, error) {
	return fetchAll[models.UpstreamStudentAcademic](ctx, c, EndpointAcademics, c.baseURL+pathStudentAcademics, token, c.bulkTimeout)
}

// FetchInvoices returns the invoices for a single student.
func (c *Client) FetchInvoices(ctx context.Context, token string, studentID int64) ([]models.UpstreamInvoice, error) {
	endpoint := fmt.Sprintf("%s%s?student_id=%s", c.baseURL, pathInvoices, url.QueryEscape(fmt.Sprintf("%d", studentID)))
	items, _, err := fetchPage[models.UpstreamInvoice](ctx, c, EndpointInvoices, endpoint, token, c.itemTimeout)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// fetchAll accumulates every page of a bulk endpoint. It never returns a
// partial dataset: any page error fails the whole fetch.
func fetchAll[T any](ctx context.Context, c *Client, label, endpoint, token string, timeout time.Duration) ([]T, error) {
	var all []T
	next := endpoint
	for next != "" {
		items, nextURL, err := fetchPage[T](ctx, c, label, next, token, timeout)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if nextURL == next {
			return nil, appErrors.Clone(appErrors.ErrUpstreamProtocol, "pagination next link loops")
		}
		next = nextURL
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// fetchPage retrieves one page, accepting either a naked list or a
// {results, next} envelope.
func fetchPage[T any](ctx context.Context, c *Client, label, endpoint, token string, timeout time.Duration) ([]T, string, error) {
	body, err := c.get(ctx, label, endpoint, token, timeout)
	if err != nil {
		return nil, "", err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrUpstreamProtocol, "empty upstream response")
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrUpstreamProtocol.Code, appErrors.ErrUpstreamProtocol.Status, "decode upstream list")
		}
		return items, "", nil
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
		Next    *string         `json:"next"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUpstreamProtocol.Code, appErrors.ErrUpstreamProtocol.Status, "decode upstream envelope")
	}
	if envelope.Results == nil {
		return nil, "", appErrors.Clone(appErrors.ErrUpstreamProtocol, "upstream envelope missing results")
	}

	var items []T
	if err := json.Unmarshal(envelope.Results, &items); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUpstreamProtocol.Code, appErrors.ErrUpstreamProtocol.Status, "decode upstream results")
	}

	next := ""
	if envelope.Next != nil {
		next = *envelope.Next
	}
	return items, next, nil
}

func (c *Client) get(ctx context.Context, label, endpoint, token string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(label, "unavailable", start)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("upstream request failed", zap.String("endpoint", label), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "registrar unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.observe(label, "unauthorized", start)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "registrar rejected tenant token")
	case resp.StatusCode >= http.StatusInternalServerError:
		c.observe(label, "unavailable", start)
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, fmt.Sprintf("registrar returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		c.observe(label, "protocol", start)
		return nil, appErrors.Clone(appErrors.ErrUpstreamProtocol, fmt.Sprintf("unexpected registrar status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(label, "unavailable", start)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "read registrar response")
	}
	c.observe(label, "ok", start)
	return body, nil
}

func (c *Client) observe(label, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveUpstreamRequest(label, outcome, time.Since(start))
}
