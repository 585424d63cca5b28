package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RequestLatency       *prometheus.HistogramVec
	BackendRequests      *prometheus.CounterVec
	BackendLatency       *prometheus.HistogramVec
	ConsentsInitiated    prometheus.Counter
	ConsentsSubmitted    prometheus.Counter
	ConsentsWithdrawn    prometheus.Counter
	ConsentsRenewed      prometheus.Counter
	IdentitiesCreated    prometheus.Counter
	OptimisticRollbacks  *prometheus.CounterVec
	TranslationFallbacks prometheus.Counter
	AuditPublishFailures *prometheus.CounterVec
	RateLimited          *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on reg. Tests pass a fresh
// registry so constructors can run more than once per process.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_portal_http_request_duration_seconds",
			Help:    "Latency of HTTP requests served by the portal",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		BackendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_portal_backend_requests_total",
			Help: "Calls made to the consent-management backend API",
		}, []string{"operation", "outcome"}),
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_portal_backend_request_duration_seconds",
			Help:    "Latency of calls made to the consent-management backend API",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ConsentsInitiated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_consents_initiated_total",
			Help: "Consent requests successfully initiated",
		}),
		ConsentsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_consents_submitted_total",
			Help: "Consent notices successfully submitted",
		}),
		ConsentsWithdrawn: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_consents_withdrawn_total",
			Help: "Consent artifacts withdrawn by the principal",
		}),
		ConsentsRenewed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_consents_renewed_total",
			Help: "Consent artifacts renewed by the principal",
		}),
		IdentitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_identities_created_total",
			Help: "Client identifiers minted for new devices",
		}),
		OptimisticRollbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_portal_optimistic_rollbacks_total",
			Help: "Optimistic admin mutations restored after a failed commit",
		}, []string{"resource"}),
		TranslationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "cms_portal_translation_fallbacks_total",
			Help: "Translations that fell back to the original text",
		}),
		AuditPublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_portal_audit_publish_failures_total",
			Help: "Audit events that could not be published",
		}, []string{"sink"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_portal_rate_limited_total",
			Help: "Requests rejected by the write throttle",
		}, []string{"class"}),
	}
}

// ObserveRequestLatency records the duration of a served request.
func (m *Metrics) ObserveRequestLatency(method, route, status string, seconds float64) {
	m.RequestLatency.WithLabelValues(method, route, status).Observe(seconds)
}

// ObserveBackendCall records the outcome and latency of a backend call.
func (m *Metrics) ObserveBackendCall(operation, outcome string, seconds float64) {
	m.BackendRequests.WithLabelValues(operation, outcome).Inc()
	m.BackendLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncrementConsentsInitiated()    { m.ConsentsInitiated.Inc() }
func (m *Metrics) IncrementConsentsSubmitted()    { m.ConsentsSubmitted.Inc() }
func (m *Metrics) IncrementConsentsWithdrawn()    { m.ConsentsWithdrawn.Inc() }
func (m *Metrics) IncrementConsentsRenewed()      { m.ConsentsRenewed.Inc() }
func (m *Metrics) IncrementIdentitiesCreated()    { m.IdentitiesCreated.Inc() }
func (m *Metrics) IncrementTranslationFallbacks() { m.TranslationFallbacks.Inc() }

// IncrementOptimisticRollbacks counts a restored snapshot for resource.
func (m *Metrics) IncrementOptimisticRollbacks(resource string) {
	m.OptimisticRollbacks.WithLabelValues(resource).Inc()
}

// IncrementAuditPublishFailures counts a dropped audit event for sink.
func (m *Metrics) IncrementAuditPublishFailures(sink string) {
	m.AuditPublishFailures.WithLabelValues(sink).Inc()
}

// IncrementRateLimited counts a throttled request for class.
func (m *Metrics) IncrementRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}
