package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventsCounter(t *testing.T) {
	before := testutil.ToFloat64(WebhookEvents.WithLabelValues("invoice.payment_failed", "applied"))
	WebhookEvents.WithLabelValues("invoice.payment_failed", "applied").Inc()
	after := testutil.ToFloat64(WebhookEvents.WithLabelValues("invoice.payment_failed", "applied"))
	assert.Equal(t, before+1, after)
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/todos/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/todos/42", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	count := testutil.CollectAndCount(requestDuration)
	assert.GreaterOrEqual(t, count, 1)

	problems, err := testutil.CollectAndLint(requestDuration)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
