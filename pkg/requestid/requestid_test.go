package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/requestid"
)

func serve(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()

	var ctxID string
	handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return ctxID, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates an ID when the header is absent", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctxID, rec := serve(t, req)

		assert.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, rec.Header().Get(requestid.Header))
	})

	t.Run("propagates a valid client ID", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{
			"abc123",
			"gw-7f3b_001",
			"550e8400-e29b-41d4-a716-446655440000",
		} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(requestid.Header, id)
			ctxID, rec := serve(t, req)

			assert.Equal(t, id, ctxID)
			assert.Equal(t, id, rec.Header().Get(requestid.Header))
		}
	})

	t.Run("replaces malformed client IDs", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{
			"has spaces",
			"slash/id",
			"<script>alert(1)</script>",
			strings.Repeat("x", 129),
		} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(requestid.Header, id)
			ctxID, rec := serve(t, req)

			assert.NotEmpty(t, ctxID)
			assert.NotEqual(t, id, ctxID)
			assert.Equal(t, ctxID, rec.Header().Get(requestid.Header))
		}
	})
}

func TestContext(t *testing.T) {
	t.Parallel()

	ctx := requestid.WithContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", requestid.FromContext(ctx))
	assert.Empty(t, requestid.FromContext(context.Background()))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	attr, ok := extract(requestid.WithContext(context.Background(), "req-2"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-2", attr.Value.String())

	_, ok = extract(context.Background())
	assert.False(t, ok)
}
