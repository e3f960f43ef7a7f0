package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标。方法对 nil 接收者安全，未启用指标时传 nil 即可。
type Metrics struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	handoffActions  *prometheus.CounterVec
	renders         *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

// New 创建独立 registry 并注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		backendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopfloor",
				Name:      "backend_requests_total",
				Help:      "Requests sent to the ERP backend",
			},
			[]string{"method", "route", "status"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shopfloor",
				Name:      "backend_request_duration_seconds",
				Help:      "Latency of ERP backend requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		handoffActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopfloor",
				Name:      "handoff_actions_total",
				Help:      "Row-selection open/save/send actions by department",
			},
			[]string{"department", "action", "result"},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopfloor",
				Name:      "drawing_renders_total",
				Help:      "Drawing page renders by result",
			},
			[]string{"result"},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopfloor",
				Name:      "table_exports_total",
				Help:      "Spreadsheet exports of parsed drawing tables",
			},
			[]string{"department"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.backendRequests,
		m.backendDuration,
		m.handoffActions,
		m.renders,
		m.exports,
	)
	return m
}

// Registry 底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBackend 记录一次后端请求；status 为 0 表示网络错误
func (m *Metrics) ObserveBackend(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.backendRequests.WithLabelValues(method, route, code).Inc()
	m.backendDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// HandoffAction 记录 open/save/send
func (m *Metrics) HandoffAction(department, action string, err error) {
	if m == nil {
		return
	}
	m.handoffActions.WithLabelValues(department, action, result(err)).Inc()
}

// Render 记录一次页面渲染
func (m *Metrics) Render(err error) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(result(err)).Inc()
}

// Export 记录一次表格导出
func (m *Metrics) Export(department string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(department).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
