package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sanposhin_backup_duration_seconds",
		Help:    "Time spent building a snapshot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	restoreDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sanposhin_restore_duration_seconds",
		Help:    "Time spent merging a snapshot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	backupOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sanposhin_backup_operations_total",
		Help: "Backup and restore operations by outcome.",
	}, []string{"operation", "result"})

	restoreAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sanposhin_restore_applied_entries_total",
		Help: "Log entries written by restores.",
	})
)
