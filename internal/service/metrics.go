package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	versionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "examcms",
		Name:      "versions_appended_total",
		Help:      "Content versions appended, by publish state transition.",
	}, []string{"transition"})

	staleWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examcms",
		Name:      "stale_writes_total",
		Help:      "Writes rejected because the expected head version was outdated.",
	})

	restoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examcms",
		Name:      "restores_total",
		Help:      "Versions restored as a new head version.",
	})

	appendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "examcms",
		Name:      "append_duration_seconds",
		Help:      "Time spent appending a content version.",
		Buckets:   prometheus.DefBuckets,
	})

	attachmentsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examcms",
		Name:      "attachments_uploaded_total",
		Help:      "Attachments stored in the registry.",
	})

	attachmentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "examcms",
		Name:      "attachment_bytes_total",
		Help:      "Bytes of attachment data uploaded.",
	})
)
