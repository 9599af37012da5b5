// Package registry looks up public company records through the relay service.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const maxBodyBytes = 1 << 20

// Client resolves tax ids to registry records, caching successful lookups.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Cache    Cache
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewClient builds a registry client.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Lookup returns the registry record for taxID.
func (c *Client) Lookup(ctx context.Context, taxID string) (*domain.RegistryCompany, error) {
	digits, err := domain.NormalizeTaxID(taxID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid tax id", map[string]any{"tax_id": taxID})
	}

	if company, ok := c.fromCache(ctx, digits); ok {
		c.metrics.RecordRegistryLookup("cache")
		return company, nil
	}

	company, err := c.fetch(ctx, digits)
	if err != nil {
		c.metrics.RecordRegistryLookup("error")
		return nil, err
	}
	c.metrics.RecordRegistryLookup("remote")
	c.store(ctx, digits, company)
	return company, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*domain.RegistryCompany, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("registry cache read failed", zap.String("tax_id", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var company domain.RegistryCompany
	if err := json.Unmarshal(raw, &company); err != nil {
		c.logger.Warn("discarding corrupt registry cache entry", zap.String("tax_id", key), zap.Error(err))
		return nil, false
	}
	return &company, true
}

func (c *Client) store(ctx context.Context, key string, company *domain.RegistryCompany) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(company)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("registry cache write failed", zap.String("tax_id", key), zap.Error(err))
	}
}

func (c *Client) fetch(ctx context.Context, taxID string) (*domain.RegistryCompany, error) {
	endpoint := fmt.Sprintf("%s/registry/%s", c.baseURL, url.PathEscape(taxID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewBadGateway("company registry unavailable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewBadGateway("company registry unavailable", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewNotFound("registry company", map[string]any{"tax_id": taxID})
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewDomainError("RATE_LIMITED", "company registry is throttling lookups", http.StatusTooManyRequests, nil)
	case resp.StatusCode >= 300:
		return nil, apperrors.NewBadGateway("company registry unavailable", fmt.Errorf("relay status %d", resp.StatusCode))
	}

	var company domain.RegistryCompany
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, apperrors.NewBadGateway("company registry returned an invalid payload", err)
	}
	if company.TaxID == "" {
		company.TaxID = taxID
	}
	return &company, nil
}
