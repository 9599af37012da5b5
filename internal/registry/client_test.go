package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helpdeskhq/helpdesk/internal/observability"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const validTaxID = "11222333000181"

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string][]byte{}} }

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func TestLookup_FetchesThenCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/registry/"+validTaxID, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tax_id":"11222333000181","name":"ACME LTDA","trade_name":"Acme","status":"ATIVA"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetrics()
	client := NewClient(Options{
		BaseURL:  srv.URL,
		CacheTTL: time.Hour,
		Cache:    newMemoryCache(),
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
	})

	first, err := client.Lookup(context.Background(), "11.222.333/0001-81")
	require.NoError(t, err)
	assert.Equal(t, "ACME LTDA", first.Name)

	second, err := client.Lookup(context.Background(), validTaxID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`, code: "NOT_FOUND"},
		{name: "throttled", status: http.StatusTooManyRequests, body: `{}`, code: "RATE_LIMITED"},
		{name: "upstream failure", status: http.StatusBadGateway, body: `{}`, code: "UPSTREAM_UNAVAILABLE"},
		{name: "bad payload", status: http.StatusOK, body: `not json`, code: "UPSTREAM_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cache := newMemoryCache()
			client := NewClient(Options{BaseURL: srv.URL, CacheTTL: time.Hour, Cache: cache, Logger: zaptest.NewLogger(t)})
			_, err := client.Lookup(context.Background(), validTaxID)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.ToDomainError(err).Code)
			assert.Empty(t, cache.items)
		})
	}
}

func TestLookup_InvalidTaxID(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Lookup(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestLookup_RelayDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := client.Lookup(context.Background(), validTaxID)
	require.Error(t, err)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", apperrors.ToDomainError(err).Code)
}
