package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchJobMetrics records outcomes for scheduled batch jobs.
type BatchJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	accounts *prometheus.CounterVec
}

// NewBatchJobMetrics registers the batch job metrics on the provided registerer.
func NewBatchJobMetrics(reg prometheus.Registerer) *BatchJobMetrics {
	if reg == nil {
		return &BatchJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of batch jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful batch job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed batch job executions.",
	}, []string{"job"})
	accounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_accounts_total",
		Help: "Accounts handled by batch jobs, labeled by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, success, failure, accounts)
	return &BatchJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		accounts: accounts,
	}
}

// ObserveDuration records the duration for the named job.
func (b *BatchJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (b *BatchJobMetrics) IncSuccess(job string) {
	if b == nil || b.success == nil {
		return
	}
	b.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (b *BatchJobMetrics) IncFailure(job string) {
	if b == nil || b.failure == nil {
		return
	}
	b.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddAccountsProcessed counts accounts the job handled successfully.
func (b *BatchJobMetrics) AddAccountsProcessed(job string, count int) {
	b.addAccounts(job, "processed", count)
}

// AddAccountsFailed counts accounts the job gave up on this pass.
func (b *BatchJobMetrics) AddAccountsFailed(job string, count int) {
	b.addAccounts(job, "failed", count)
}

func (b *BatchJobMetrics) addAccounts(job, outcome string, count int) {
	if b == nil || b.accounts == nil || count <= 0 {
		return
	}
	b.accounts.WithLabelValues(normalizeLabel(job), outcome).Add(float64(count))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
