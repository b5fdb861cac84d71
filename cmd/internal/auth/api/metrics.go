package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth counters. A nil *Metrics is safe to use and records
// nothing, so tests and db-disabled wiring can skip it.
type Metrics struct {
	logins      *prometheus.CounterVec
	signups     prometheus.Counter
	rotations   *prometheus.CounterVec
	reuse       prometheus.Counter
	revocations prometheus.Counter
}

// NewMetrics registers the auth counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Completed company signups.",
		}),
		rotations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Subsystem: "auth",
			Name:      "refresh_rotations_total",
			Help:      "Refresh rotation attempts by result.",
		}, []string{"result"}),
		reuse: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Subsystem: "auth",
			Name:      "refresh_reuse_detected_total",
			Help:      "Refresh credential reuse incidents.",
		}),
		revocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Subsystem: "auth",
			Name:      "credentials_revoked_total",
			Help:      "Credentials revoked by logout, logout-all and teardown.",
		}),
	}
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Signup() {
	if m == nil {
		return
	}
	m.signups.Inc()
}

func (m *Metrics) Rotation(result string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(result).Inc()
}

func (m *Metrics) ReuseDetected() {
	if m == nil {
		return
	}
	m.reuse.Inc()
}

func (m *Metrics) Revoked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.Add(float64(n))
}
