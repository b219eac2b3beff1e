package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/linktrail/internal/middleware"
	"github.com/serroba/linktrail/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	testRemoteAddr = "192.168.1.1:12345"
	testUserAgent  = "TestAgent/1.0"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	headers    map[string]string
	remoteAddr string
	written    []byte
	statusCode int
	method     string
	operation  *huma.Operation
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		headers:    map[string]string{"User-Agent": testUserAgent},
		remoteAddr: testRemoteAddr,
		method:     http.MethodGet,
		operation:  &huma.Operation{Path: "/links"},
	}
}

func (m *mockHumaContext) Operation() *huma.Operation {
	return m.operation
}
func (m *mockHumaContext) Context() context.Context              { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState             { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion            { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                        { return m.method }
func (m *mockHumaContext) Host() string                          { return "localhost:8888" }
func (m *mockHumaContext) RemoteAddr() string                    { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                          { return url.URL{Path: "/links"} }
func (m *mockHumaContext) Param(_ string) string                 { return "" }
func (m *mockHumaContext) Query(_ string) string                 { return "" }
func (m *mockHumaContext) Header(name string) string             { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(name, value string)) {}
func (m *mockHumaContext) BodyReader() io.Reader                 { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(code int)                { m.statusCode = code }
func (m *mockHumaContext) Status() int                       { return m.statusCode }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return &mockBodyWriter{ctx: m} }

type mockBodyWriter struct {
	ctx *mockHumaContext
}

func (w *mockBodyWriter) Write(p []byte) (n int, err error) {
	w.ctx.written = append(w.ctx.written, p...)

	return len(p), nil
}

// mockPolicyStore counts records per key.
type mockPolicyStore struct {
	counts map[string]int64
	err    error
}

func newMockPolicyStore() *mockPolicyStore {
	return &mockPolicyStore{counts: make(map[string]int64)}
}

func (m *mockPolicyStore) Record(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}

	m.counts[key]++

	return m.counts[key], nil
}

type mockScopeResolver struct {
	scopes []ratelimit.Scope
}

func (m *mockScopeResolver) Resolve(_ huma.Context) []ratelimit.Scope {
	return m.scopes
}

func newLimiter(store ratelimit.Store, scope ratelimit.Scope, maxRequests int64) *ratelimit.PolicyLimiter {
	return ratelimit.NewPolicyLimiter(store, &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
		scope: {{Window: time.Minute, Max: maxRequests}},
	}})
}

func run(mw func(huma.Context, func(huma.Context)), ctx huma.Context) bool {
	nextCalled := false

	mw(ctx, func(_ huma.Context) {
		nextCalled = true
	})

	return nextCalled
}

func TestPolicyRateLimiter(t *testing.T) {
	global := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

	t.Run("allows request when under limit", func(t *testing.T) {
		limiter := newLimiter(newMockPolicyStore(), ratelimit.ScopeGlobal, 10)
		mw := middleware.PolicyRateLimiter(newTestAPI(), limiter, global, zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext()))
	})

	t.Run("returns 429 with limit details when rate limited", func(t *testing.T) {
		limiter := newLimiter(newMockPolicyStore(), ratelimit.ScopeGlobal, 1)
		mw := middleware.PolicyRateLimiter(newTestAPI(), limiter, global, zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext()))

		ctx := newMockHumaContext()

		assert.False(t, run(mw, ctx))
		assert.Equal(t, http.StatusTooManyRequests, ctx.statusCode)
		assert.Contains(t, string(ctx.written), "rate limit exceeded: global scope, 2/1 requests in 1m0s")
	})

	t.Run("returns 500 when the store fails", func(t *testing.T) {
		store := newMockPolicyStore()
		store.err = errors.New("store down")
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(store, ratelimit.ScopeGlobal, 10), global, zap.NewNop())

		ctx := newMockHumaContext()

		assert.False(t, run(mw, ctx))
		assert.Equal(t, http.StatusInternalServerError, ctx.statusCode)
	})

	t.Run("clients are keyed by ip and user agent", func(t *testing.T) {
		store := newMockPolicyStore()
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(store, ratelimit.ScopeGlobal, 1), global, zap.NewNop())

		assert.True(t, run(mw, newMockHumaContext()))

		other := newMockHumaContext()
		other.headers["User-Agent"] = "DifferentAgent/2.0"
		assert.True(t, run(mw, other))

		sameIPNewPort := newMockHumaContext()
		sameIPNewPort.remoteAddr = "192.168.1.1:54321"
		assert.False(t, run(mw, sameIPNewPort))
	})

	t.Run("first X-Forwarded-For entry identifies the client", func(t *testing.T) {
		mw := middleware.PolicyRateLimiter(
			newTestAPI(), newLimiter(newMockPolicyStore(), ratelimit.ScopeGlobal, 1), global, zap.NewNop())

		first := newMockHumaContext()
		first.remoteAddr = "10.0.0.1:12345"
		first.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18"
		assert.True(t, run(mw, first))

		second := newMockHumaContext()
		second.remoteAddr = "10.0.0.2:54321"
		second.headers["X-Forwarded-For"] = "203.0.113.195"
		assert.False(t, run(mw, second))
	})

	t.Run("X-Real-IP identifies the client", func(t *testing.T) {
		mw := middleware.PolicyRateLimiter(
			newTestAPI(), newLimiter(newMockPolicyStore(), ratelimit.ScopeGlobal, 1), global, zap.NewNop())

		first := newMockHumaContext()
		first.remoteAddr = "10.0.0.1:12345"
		first.headers["X-Real-IP"] = "203.0.113.100"
		assert.True(t, run(mw, first))

		second := newMockHumaContext()
		second.remoteAddr = "10.0.0.2:12345"
		second.headers["X-Real-IP"] = "203.0.113.100"
		assert.False(t, run(mw, second))
	})

	t.Run("disabled endpoint skips the limiter", func(t *testing.T) {
		store := newMockPolicyStore()
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(store, ratelimit.ScopeGlobal, 1), global, zap.NewNop())

		for range 3 {
			ctx := newMockHumaContext()
			ctx.operation.Metadata = map[string]any{
				ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
			}

			assert.True(t, run(mw, ctx))
		}

		assert.Empty(t, store.counts)
	})

	t.Run("custom endpoint limits replace the policy", func(t *testing.T) {
		store := newMockPolicyStore()
		mw := middleware.PolicyRateLimiter(newTestAPI(), newLimiter(store, ratelimit.ScopeGlobal, 100), global, zap.NewNop())

		custom := func() *mockHumaContext {
			ctx := newMockHumaContext()
			ctx.method = http.MethodPost
			ctx.operation.Metadata = map[string]any{
				ratelimit.MetadataKey: ratelimit.EndpointConfig{
					Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 2}},
				},
			}

			return ctx
		}

		assert.True(t, run(mw, custom()))
		assert.True(t, run(mw, custom()))

		denied := custom()
		assert.False(t, run(mw, denied))
		assert.Equal(t, http.StatusTooManyRequests, denied.statusCode)

		for key := range store.counts {
			assert.Contains(t, key, ":custom:/links:")
		}
	})

	t.Run("endpoint scope goes through the resolver", func(t *testing.T) {
		store := newMockPolicyStore()
		limiter := newLimiter(store, ratelimit.ScopeVisit, 1)
		mw := middleware.PolicyRateLimiter(newTestAPI(), limiter, ratelimit.NewOperationScopeResolver(), zap.NewNop())

		visit := func() *mockHumaContext {
			ctx := newMockHumaContext()
			ctx.method = http.MethodPost
			ctx.operation = &huma.Operation{
				Path:     "/links/{token}/visits",
				Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeVisit}},
			}

			return ctx
		}

		assert.True(t, run(mw, visit()))
		assert.False(t, run(mw, visit()))
	})
}
