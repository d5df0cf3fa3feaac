// Prometheus 指标导出
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 包含所有 API Server 指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 账号指标
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec

	// 业务指标
	OrdersTotal       *prometheus.CounterVec
	DeliveriesTotal   *prometheus.CounterVec
	UploadsTotal      *prometheus.CounterVec
	UploadBytes       prometheus.Counter
	LocationUpdates   prometheus.Counter
	TrackingWSActive  prometheus.Gauge
	TrackingWSMsgSent prometheus.Counter
}

// NewMetrics 创建指标实例
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		RegistrationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Total account registrations by principal type",
			},
			[]string{"principal"},
		),
		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total successful logins by principal type",
			},
			[]string{"principal"},
		),
		OrdersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Total order status transitions",
			},
			[]string{"status"},
		),
		DeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Total delivery status transitions",
			},
			[]string{"status"},
		),
		UploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total image uploads by kind",
			},
			[]string{"kind"},
		),
		UploadBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "Total bytes of uploaded images",
			},
		),
		LocationUpdates: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "driver_location_updates_total",
				Help:      "Total driver location updates",
			},
		),
		TrackingWSActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracking_websocket_connections_active",
				Help:      "Active delivery tracking WebSocket connections",
			},
		),
		TrackingWSMsgSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tracking_websocket_messages_sent_total",
				Help:      "Total messages pushed over tracking WebSockets",
			},
		),
	}
}

// MetricsMiddleware 创建 HTTP 指标中间件
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		// 包装 ResponseWriter 以捕获状态码
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter 包装 http.ResponseWriter 以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath 规范化路径，将 ID 替换为占位符，避免高基数
func normalizePath(path string) string {
	for _, prefix := range []string{
		"/api/v1/products/",
		"/api/v1/orders/",
		"/api/v1/reviews/",
		"/api/v1/complaints/",
		"/api/v1/deliveries/",
		"/api/v1/farmers/",
		"/api/v1/buyers/",
		"/ws/deliveries/",
	} {
		if strings.HasPrefix(path, prefix) {
			rest := path[len(prefix):]
			// 非 ID 子路径（register/login/profile 等）保持原样
			if !strings.Contains(rest, "/") && looksLikeID(rest) {
				return prefix + "{id}"
			}
			if i := strings.IndexByte(rest, '/'); i >= 0 && looksLikeID(rest[:i]) {
				return prefix + "{id}" + rest[i:]
			}
		}
	}
	return path
}

// looksLikeID 识别 generateID 产出的 "<prefix>-<12位十六进制>" 形式
func looksLikeID(s string) bool {
	i := strings.LastIndexByte(s, '-')
	if i < 0 || len(s)-i-1 != 12 {
		return false
	}
	for _, c := range s[i+1:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// MetricsHandler 返回 Prometheus HTTP Handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
