package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualermcp/internal/apperr"
	"qualermcp/internal/config"
	"qualermcp/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*config.UpstreamConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.UpstreamConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 2 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew(t *testing.T) {
	t.Run("missing token is configuration error", func(t *testing.T) {
		_, err := New(config.UpstreamConfig{BaseURL: config.DefaultBaseURL})
		require.Error(t, err)
		assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "QUALER_TOKEN")
	})

	t.Run("blank token is configuration error", func(t *testing.T) {
		_, err := New(config.UpstreamConfig{BaseURL: config.DefaultBaseURL, Token: "   "})
		assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	})

	t.Run("relative base url is configuration error", func(t *testing.T) {
		_, err := New(config.UpstreamConfig{BaseURL: "not-a-url", Token: "x"})
		assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := New(config.UpstreamConfig{BaseURL: config.DefaultBaseURL + "/", Token: "x"})
		require.NoError(t, err)
		assert.Equal(t, config.DefaultBaseURL, c.baseURL)
		assert.Equal(t, DefaultTimeout, c.timeout)
		assert.Nil(t, c.limiter)
		assert.Equal(t, "disabled", c.BreakerState())
	})
}

func TestClient_Get(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1188722, "number": "SO-1"}`))
	})

	v, err := c.Get(context.Background(), "/api/v1/service-orders/1188722", url.Values{"cursor": {"abc"}})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/api/v1/service-orders/1188722", gotPath)
	assert.Equal(t, "cursor=abc", gotQuery)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("1188722"), m["id"])
}

func TestClient_Post(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 9}`))
	})

	v, err := c.Post(context.Background(), "/api/v1/service-orders/1/documents", map[string]string{"filename": "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got["filename"])
	assert.Equal(t, json.Number("9"), v.(map[string]any)["id"])
}

func TestClient_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	v, err := c.Post(context.Background(), "/x", map[string]string{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   apperr.Kind
		wantStatus int
		wantBody   string
	}{
		{name: "404", status: http.StatusNotFound, body: "no such order", wantKind: apperr.KindNotFound},
		{name: "500 keeps body verbatim", status: http.StatusInternalServerError, body: "database exploded", wantKind: apperr.KindUpstream, wantStatus: 500, wantBody: "database exploded"},
		{name: "403", status: http.StatusForbidden, body: `{"message":"forbidden"}`, wantKind: apperr.KindUpstream, wantStatus: 403, wantBody: `{"message":"forbidden"}`},
		{name: "malformed json", status: http.StatusOK, body: `{"id": `, wantKind: apperr.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Get(context.Background(), "/api/v1/assets/1", nil)
			require.Error(t, err)

			var e *apperr.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantKind, e.Kind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, e.Status)
				assert.Equal(t, tt.wantBody, e.Body)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, func(cfg *config.UpstreamConfig) {
		cfg.Timeout = 50 * time.Millisecond
	})

	_, err := c.Get(context.Background(), "/slow", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.True(t, apperr.Retryable(err))
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(config.UpstreamConfig{BaseURL: base, Token: "x", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/api/v1/assets/1", nil)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(cfg *config.UpstreamConfig) {
		cfg.BreakerFailures = 2
		cfg.BreakerOpen = time.Minute
	})

	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), "/x", nil)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_BreakerIgnoresNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, func(cfg *config.UpstreamConfig) {
		cfg.BreakerFailures = 1
		cfg.BreakerOpen = time.Minute
	})

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "/x", nil)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestClient_RateLimitWaitFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, func(cfg *config.UpstreamConfig) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})

	_, err := c.Get(context.Background(), "/x", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "/x", nil)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(config.UpstreamConfig{BaseURL: srv.URL, Token: "x"}, WithMetrics(m))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/api/v1/assets/5", nil)
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() == "qualer_upstream_requests_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
