package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBackend(t *testing.T) {
	m := New()
	m.ObserveBackend("GET", "orders.list", 200, 15*time.Millisecond)
	m.ObserveBackend("GET", "orders.list", 200, 5*time.Millisecond)
	m.ObserveBackend("POST", "selection.save", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "orders.list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("POST", "selection.save", "error")))
}

func TestHandoffAndRender(t *testing.T) {
	m := New()
	m.HandoffAction("DESIGN", "save", nil)
	m.HandoffAction("DESIGN", "send", errors.New("boom"))
	m.Render(nil)
	m.Export("PRODUCTION")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.handoffActions.WithLabelValues("DESIGN", "save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handoffActions.WithLabelValues("DESIGN", "send", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("PRODUCTION")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("GET", "x", 200, time.Second)
		m.HandoffAction("DESIGN", "open", nil)
		m.Render(nil)
		m.Export("DESIGN")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.HandoffAction("MACHINING", "send", nil)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `shopfloor_handoff_actions_total{action="send",department="MACHINING",result="ok"} 1`))
}
