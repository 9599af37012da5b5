// Package relay implements the standalone service that proxies company-registry
// lookups to the third-party provider under a shared rate budget.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// UpstreamError carries the provider's HTTP status back to the caller.
// Message is safe to return; Cause holds transport detail for the logs only.
type UpstreamError struct {
	Status  int
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("registry upstream: %d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("registry upstream: %d %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// Fetcher resolves a normalized tax id against the registry provider.
type Fetcher interface {
	Fetch(ctx context.Context, taxID string) (*domain.RegistryCompany, error)
}

// Upstream calls the provider, waiting on a token bucket shared by every caller.
type Upstream struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// UpstreamOptions configures an Upstream.
type UpstreamOptions struct {
	BaseURL string
	Token   string
	Rate    float64
	Burst   int
	Timeout time.Duration
}

// NewUpstream builds the provider client. A non-positive rate disables throttling.
func NewUpstream(opts UpstreamOptions) *Upstream {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Upstream{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type providerRecord struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	TaxID     string `json:"cnpj"`
	Name      string `json:"nome"`
	TradeName string `json:"fantasia"`
	Email     string `json:"email"`
	Phone     string `json:"telefone"`
	Situation string `json:"situacao"`
	City      string `json:"municipio"`
	State     string `json:"uf"`
}

// Fetch waits for the shared limiter, then queries the provider.
func (u *Upstream) Fetch(ctx context.Context, taxID string) (*domain.RegistryCompany, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Status: http.StatusTooManyRequests, Message: "rate budget exhausted"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/"+url.PathEscape(taxID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Message: "registry provider unreachable", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Message: "registry provider response unreadable", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var record providerRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Message: "invalid provider payload"}
	}
	if strings.EqualFold(record.Status, "ERROR") {
		return nil, &UpstreamError{Status: http.StatusNotFound, Message: record.Message}
	}

	return &domain.RegistryCompany{
		TaxID:     taxID,
		Name:      record.Name,
		TradeName: record.TradeName,
		Email:     record.Email,
		Phone:     record.Phone,
		Status:    record.Situation,
		City:      record.City,
		State:     record.State,
	}, nil
}
