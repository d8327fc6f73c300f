package ecwt

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Verification outcomes reported to a MetricsRecorder.
const (
	OutcomeValid     = "valid"
	OutcomeExpired   = "expired"
	OutcomeRevoked   = "revoked"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Revocation results reported to a MetricsRecorder.
const (
	RevocationStored  = "stored"
	RevocationSkipped = "skipped"
	RevocationNoStore = "no_store"
	RevocationFailed  = "failed"
)

// MetricsRecorder receives factory events.
type MetricsRecorder interface {
	TokenCreated()
	TokenVerified(outcome string)
	CacheLookup(hit bool)
	TokenRevoked(result string)
}

type noopMetrics struct{}

func (noopMetrics) TokenCreated()        {}
func (noopMetrics) TokenVerified(string) {}
func (noopMetrics) CacheLookup(bool)     {}
func (noopMetrics) TokenRevoked(string)  {}

// PrometheusMetrics is a MetricsRecorder exporting Prometheus counters.
type PrometheusMetrics struct {
	created       prometheus.Counter
	verifications *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	revocations   *prometheus.CounterVec
}

// NewPrometheusMetrics creates the ecwt counters and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecwt_tokens_created_total",
			Help: "Number of tokens created.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecwt_verifications_total",
			Help: "Number of token verifications by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecwt_cache_lookups_total",
			Help: "Number of decode cache lookups by result.",
		}, []string{"result"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecwt_revocations_total",
			Help: "Number of revocation requests by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.created, m.verifications, m.cacheLookups, m.revocations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) TokenCreated() {
	m.created.Inc()
}

func (m *PrometheusMetrics) TokenVerified(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) TokenRevoked(result string) {
	m.revocations.WithLabelValues(result).Inc()
}
