package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teamkeys"

// PrometheusRecorder exports metrics through a Prometheus registerer.
type PrometheusRecorder struct {
	apiKeyOps       *prometheus.CounterVec
	authResults     *prometheus.CounterVec
	authzDecisions  *prometheus.CounterVec
	auditPublished  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheus registers the application's collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		apiKeyOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_keys",
			Name:      "operations_total",
			Help:      "Successful API key operations by kind",
		}, []string{"operation"}),
		authResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication attempts by credential type and result",
		}, []string{"type", "result"}),
		authzDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by action and outcome",
		}, []string{"action", "outcome"}),
		auditPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "stream_published_total",
			Help:      "Audit events copied to the Redis stream",
		}, []string{"status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

func (p *PrometheusRecorder) IncAPIKeyCreated() { p.apiKeyOps.WithLabelValues("create").Inc() }
func (p *PrometheusRecorder) IncAPIKeyDeleted() { p.apiKeyOps.WithLabelValues("delete").Inc() }
func (p *PrometheusRecorder) IncAPIKeyListed()  { p.apiKeyOps.WithLabelValues("list").Inc() }

func (p *PrometheusRecorder) IncAuthResult(authType, result string) {
	p.authResults.WithLabelValues(authType, result).Inc()
}

func (p *PrometheusRecorder) IncAuthzDecision(action string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	p.authzDecisions.WithLabelValues(action, outcome).Inc()
}

func (p *PrometheusRecorder) IncAuditEventPublished(status string) {
	p.auditPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveRequestDuration(route string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}
