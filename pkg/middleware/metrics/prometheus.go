package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP records per-route request metrics:
//
//	http_request_duration_seconds{method,path,status}  histogram
//	http_requests_inflight                              gauge
//	http_request_errors_total{method,path,status}      counter, 4xx/5xx only
type HTTP struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

const unmatchedPath = "<unmatched>"

// New registers the collectors in reg under the service namespace. A nil reg means
// the default registry.
func New(service string, reg prometheus.Registerer) *HTTP {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	service = strings.NewReplacer("-", "_", ".", "_").Replace(service)
	m := &HTTP{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "HTTP requests that ended with a 4xx or 5xx status.",
		}, []string{"method", "path", "status"}),
		gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	reg.MustRegister(m.reqDuration, m.reqInflight, m.reqErrors)
	return m
}

func (m *HTTP) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.reqInflight.Inc()
			defer m.reqInflight.Dec()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					code = he.Code
				} else {
					code = http.StatusInternalServerError
				}
			}
			status := strconv.Itoa(code)
			// Unrouted requests share one label so scanners cannot mint series.
			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			method := c.Request().Method

			m.reqDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			if code >= 400 {
				m.reqErrors.WithLabelValues(method, path, status).Inc()
			}
			return err
		}
	}
}

// Handler serves the registry the collectors were registered in.
func (m *HTTP) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
