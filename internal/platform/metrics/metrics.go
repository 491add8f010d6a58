package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_application_transitions_total",
			Help: "Applications entering each status",
		},
		[]string{"status"},
	)

	LockConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_lock_conflicts_total",
			Help: "Rejected lock acquisitions by reason",
		},
		[]string{"reason"},
	)

	RealtimePushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_realtime_push_failures_total",
			Help: "Real-time pushes that could not be published",
		},
		[]string{"event"},
	)

	NotificationWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adoption_notification_write_failures_total",
			Help: "Notifications that could not be persisted",
		},
	)

	RoomActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_room_actions_total",
			Help: "Room lifecycle actions by room kind and action",
		},
		[]string{"kind", "action"},
	)

	ArchiveCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_archive_commits_total",
			Help: "Archive transactions by result",
		},
		[]string{"result"},
	)

	ArchiveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adoption_archive_duration_seconds",
			Help:    "Duration of the archive transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
)
