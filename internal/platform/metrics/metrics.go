package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ApplicationsCreated  prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	VerificationChecks   *prometheus.CounterVec
	VerificationDuration *prometheus.HistogramVec
	ExamSubmissions      prometheus.Counter
	ExamScores           prometheus.Histogram
	InterviewBookings    *prometheus.CounterVec
	StorageRecoveries    *prometheus.CounterVec
	StoreTxDuration      prometheus.Histogram
	AuditSinkFailures    prometheus.Counter
	HTTPRequestDuration  *prometheus.HistogramVec
	RateLimited          *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "rnp_applications_created_total",
			Help: "Total number of applications submitted",
		}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rnp_status_transitions_total",
			Help: "Applicant status transitions by source and target status",
		}, []string{"from", "to"}),
		VerificationChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rnp_verification_checks_total",
			Help: "Registry checks by kind and outcome",
		}, []string{"kind", "outcome"}),
		VerificationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rnp_verification_duration_seconds",
			Help:    "Duration of registry lookups including retries",
			Buckets: latencyBuckets,
		}, []string{"kind"}),
		ExamSubmissions: f.NewCounter(prometheus.CounterOpts{
			Name: "rnp_exam_submissions_total",
			Help: "Total number of graded exam submissions",
		}),
		ExamScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rnp_exam_score",
			Help:    "Distribution of exam scores (0-100)",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		InterviewBookings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rnp_interview_bookings_total",
			Help: "Interview booking attempts by outcome",
		}, []string{"outcome"}),
		StorageRecoveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rnp_storage_recoveries_total",
			Help: "Collections reset to seed data after failing to decode",
		}, []string{"collection"}),
		StoreTxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rnp_store_tx_duration_seconds",
			Help:    "Duration of record store transactions including lock wait",
			Buckets: latencyBuckets,
		}),
		AuditSinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rnp_audit_sink_failures_total",
			Help: "Audit entries that could not be forwarded to an external sink",
		}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rnp_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: latencyBuckets,
		}, []string{"route", "method", "status"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rnp_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter, by endpoint class",
		}, []string{"class"}),
	}
}

// IncrementApplicationsCreated records a new application.
func (m *Metrics) IncrementApplicationsCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}

// IncrementStatusTransition records a committed status change.
func (m *Metrics) IncrementStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// ObserveVerification records one registry check.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerification(kind, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.VerificationChecks.WithLabelValues(kind, outcome).Inc()
	m.VerificationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ObserveExamScore records a graded submission.
func (m *Metrics) ObserveExamScore(score int) {
	if m == nil {
		return
	}
	m.ExamSubmissions.Inc()
	m.ExamScores.Observe(float64(score))
}

// IncrementInterviewBooking records a booking attempt outcome.
func (m *Metrics) IncrementInterviewBooking(outcome string) {
	if m == nil {
		return
	}
	m.InterviewBookings.WithLabelValues(outcome).Inc()
}

// IncrementStorageRecovery records a collection reset after corruption.
func (m *Metrics) IncrementStorageRecovery(collection string) {
	if m == nil {
		return
	}
	m.StorageRecoveries.WithLabelValues(collection).Inc()
}

// ObserveStoreTx records the duration of a store transaction.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStoreTx(start time.Time) {
	if m == nil {
		return
	}
	m.StoreTxDuration.Observe(time.Since(start).Seconds())
}

// IncrementAuditSinkFailure records a failed audit forward.
func (m *Metrics) IncrementAuditSinkFailure() {
	if m == nil {
		return
	}
	m.AuditSinkFailures.Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// IncrementRateLimited records a rejected request.
func (m *Metrics) IncrementRateLimited(class string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(class).Inc()
}
