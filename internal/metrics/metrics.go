// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts inbound AX.25 frames by packet kind
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_frames_received_total",
			Help: "Total number of AX.25 frames received",
		},
		[]string{"kind"},
	)

	// FramesSentTotal counts outbound AX.25 frames by packet kind
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundlink_frames_sent_total",
			Help: "Total number of AX.25 frames transmitted",
		},
		[]string{"kind"},
	)

	// MacFailuresTotal counts packets whose digest failed verification
	MacFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_mac_failures_total",
			Help: "Total number of packets failing MAC verification",
		},
	)

	// ReceiveTimeoutsTotal counts ack-timeout expirations while a
	// downlink was pending
	ReceiveTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_receive_timeouts_total",
			Help: "Total number of receive timeouts during a pending downlink",
		},
	)

	// AcksSentTotal counts cumulative ACKs sent to the spacecraft
	AcksSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_acks_sent_total",
			Help: "Total number of ACK packets sent",
		},
	)

	// NaksSentTotal counts NAKs sent to the spacecraft
	NaksSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_naks_sent_total",
			Help: "Total number of NAK packets sent",
		},
	)

	// RetransmissionsTotal counts telecommand frames retransmitted after
	// a spacecraft NAK
	RetransmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_retransmissions_total",
			Help: "Total number of telecommand frames retransmitted",
		},
	)

	// DownlinksAbortedTotal counts downlinks abandoned after the retry
	// budget ran out
	DownlinksAbortedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_downlinks_aborted_total",
			Help: "Total number of downlinks aborted after retry exhaustion",
		},
	)

	// TransportErrorsTotal counts malformed or unclassifiable frames
	// discarded by the receive path
	TransportErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_transport_errors_total",
			Help: "Total number of malformed frames discarded",
		},
	)

	// DisplayDropsTotal counts frames dropped from the best-effort
	// display queue
	DisplayDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groundlink_display_drops_total",
			Help: "Total number of frames dropped from the display queue",
		},
	)

	// DownlinkPayloadsPending tracks payloads still expected from the
	// in-progress downlink
	DownlinkPayloadsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groundlink_downlink_payloads_pending",
			Help: "Payloads still expected from the current downlink",
		},
	)
)
