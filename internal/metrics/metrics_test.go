package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/crm/customers", http.StatusOK, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/crm/customers", http.StatusOK, 5*time.Millisecond)
	m.MessageSent("sms", "sent", true)
	m.ContentGenerated("template")
	m.WorkflowExecuted("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/crm/customers", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("sms", "sent", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("template")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowRuns.WithLabelValues("completed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.MessageSent("email", "sent", false)
	m.SocialPublished("facebook", "published")
	m.DispatcherHandled("message", "sent")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SocialPublished("linkedin", "published")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `cloudboost_social_publications_total{platform="linkedin",status="published"} 1`))
}
