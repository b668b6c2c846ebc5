package netclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 标签取值有限：event 只来自 protocol 中的常量，reason 固定几种
var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_client_messages_received_total",
		Help: "Inbound socket events handled by the client",
	}, []string{"event"})

	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_client_messages_sent_total",
		Help: "Outbound intents queued for the socket",
	}, []string{"event"})

	messagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_client_messages_dropped_total",
		Help: "Outbound intents dropped before reaching the socket",
	}, []string{"reason"}) // "disconnected", "queue_full", "encode"

	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_client_handler_errors_total",
		Help: "Inbound events that failed to decode or apply",
	}, []string{"event"})

	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tank_client_reconnects_total",
		Help: "Successful reconnects after a dropped connection",
	})
)
