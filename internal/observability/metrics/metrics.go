package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	EncryptOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encrypt_operations_total",
			Help: "Message bodies sealed, by scheme.",
		},
		[]string{"scheme"},
	)

	DecryptOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decrypt_operations_total",
			Help: "Message bodies opened, by scheme and result.",
		},
		[]string{"scheme", "result"},
	)

	MigrationRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_rows_total",
			Help: "Rows seen by the migration worker, by outcome.",
		},
		[]string{"outcome"},
	)

	MigrationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_runs_total",
			Help: "Migration batches executed, by trigger.",
		},
		[]string{"trigger"},
	)

	AdminAuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_auth_attempts_total",
			Help: "Admin surface authentication attempts, by method and result.",
		},
		[]string{"method", "result"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		EncryptOperationsTotal,
		DecryptOperationsTotal,
		MigrationRowsTotal,
		MigrationRunsTotal,
		AdminAuthAttemptsTotal,
	)
}
