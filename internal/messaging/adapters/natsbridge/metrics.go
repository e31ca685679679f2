package natsbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bridgeMessagesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "textly",
		Name:      "bridge_messages_received_total",
		Help:      "Total messages received from the native bridge, by subject.",
	},
	[]string{"subject"},
)
