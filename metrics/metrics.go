// Package metrics holds the prometheus collectors shared by the link,
// bridge and keypad packages.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "padlink"

var (
	registerOnce sync.Once

	FramesOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "encoded_total",
			Help:      "Frames encoded and handed to the link.",
		},
		[]string{"kind"},
	)
	FramesIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "decoded_total",
			Help:      "Frames decoded from the link.",
		},
		[]string{"kind"},
	)
	ProtocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "protocol_errors_total",
			Help:      "Candidate frames discarded, by reason.",
		},
		[]string{"reason"},
	)
	BridgeBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "bytes_total",
			Help:      "Bytes forwarded by the bridge, by direction.",
		},
		[]string{"direction"},
	)
	BridgeDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "dropped_bytes_total",
			Help:      "Bytes discarded by the bridge, by direction.",
		},
		[]string{"direction"},
	)
	LinkState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "state",
			Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting).",
		},
	)
	LinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "failures_total",
			Help:      "Connection failures, by cause.",
		},
		[]string{"cause"},
	)
	KeypadDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keypad",
			Name:      "dropped_events_total",
			Help:      "Keypad events dropped because the queue was full.",
		},
	)
)

// Register registers every collector with the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FramesOut, FramesIn, ProtocolErrors,
			BridgeBytes, BridgeDropped,
			LinkState, LinkFailures,
			KeypadDropped,
		)
	})
}
