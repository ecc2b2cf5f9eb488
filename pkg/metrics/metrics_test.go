package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(201))
	assert.Equal(t, "3xx", StatusClass(302))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "unknown", StatusClass(101))
}

func TestObserveReconciliation(t *testing.T) {
	before := testutil.ToFloat64(reconciliationsTotal.WithLabelValues("signed", "applied"))
	ObserveReconciliation("signed", "applied")
	ObserveReconciliation("signed", "applied")
	after := testutil.ToFloat64(reconciliationsTotal.WithLabelValues("signed", "applied"))
	assert.Equal(t, before+2, after)
}

func TestAddStalePaymentsFailed(t *testing.T) {
	before := testutil.ToFloat64(stalePaymentsFailedTotal)
	AddStalePaymentsFailed(0)
	AddStalePaymentsFailed(3)
	assert.Equal(t, before+3, testutil.ToFloat64(stalePaymentsFailedTotal))
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/accounts/:id", 200, 15*time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `plan_ledger_http_requests_total{method="GET",route="/accounts/:id",status="2xx"}`)
	assert.Contains(t, body, "plan_ledger_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
