package environment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/environment"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := environment.WithContext(context.Background(), environment.Staging)
	assert.Equal(t, environment.Staging, environment.FromContext(ctx))
	assert.Equal(t, environment.Environment(""), environment.FromContext(context.Background()))
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		env          environment.Environment
		isProduction bool
		isStaging    bool
		isDev        bool
	}{
		{environment.Production, true, false, false},
		{"prod", true, false, false},
		{environment.Staging, false, true, false},
		{"stage", false, true, false},
		{environment.Development, false, false, true},
		{"dev", false, false, true},
		{"", false, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.env), func(t *testing.T) {
			t.Parallel()
			ctx := environment.WithContext(context.Background(), tc.env)
			assert.Equal(t, tc.isProduction, environment.IsProduction(ctx))
			assert.Equal(t, tc.isStaging, environment.IsStaging(ctx))
			assert.Equal(t, tc.isDev, environment.IsDevelopment(ctx))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen environment.Environment
	handler := environment.Middleware(environment.Production)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = environment.FromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, environment.Production, seen)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := environment.LoggerExtractor()

	attr, ok := extract(environment.WithContext(context.Background(), environment.Development))
	require.True(t, ok)
	assert.Equal(t, "env", attr.Key)
	assert.Equal(t, "development", attr.Value.String())

	_, ok = extract(context.Background())
	assert.False(t, ok)
}
