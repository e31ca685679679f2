package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesDispatchedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textly",
			Name:      "messages_dispatched_total",
			Help:      "Total outbound messages accepted or rejected by the dispatch service.",
		},
		[]string{"kind", "outcome"}, // outcome: "accepted", "rejected", "transmit_error", "persistence_error"
	)

	deliveryCallbacksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textly",
			Name:      "delivery_callbacks_total",
			Help:      "Total native delivery callbacks by channel and how they were resolved.",
		},
		[]string{"channel", "outcome"}, // channel: "sent", "delivered"; outcome: "applied", "partial", "ignored", "failed", "correlation_miss"
	)

	inboundProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textly",
			Name:      "inbound_messages_total",
			Help:      "Total inbound messages processed.",
		},
		[]string{"status"}, // "success", "error_db_save", "error_thread_upsert"
	)

	inboundProcessingDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "textly",
			Name:      "inbound_processing_duration_seconds",
			Help:      "Duration of inbound message ingestion.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
