package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peerline_rooms_active",
			Help: "Number of rooms currently held by this rendezvous instance",
		},
	)

	ParticipantsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peerline_participants_connected",
			Help: "Number of websocket participants currently connected",
		},
	)

	SignalsRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerline_signals_relayed_total",
			Help: "Signaling messages forwarded to a connected target, by kind",
		},
		[]string{"kind"},
	)

	SignalsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "peerline_signals_dropped_total",
			Help: "Signaling messages dropped because the target was not connected",
		},
	)
)

func init() {
	prometheus.MustRegister(RoomsActive)
	prometheus.MustRegister(ParticipantsConnected)
	prometheus.MustRegister(SignalsRelayed)
	prometheus.MustRegister(SignalsDropped)
}

// Handler exposes the default gatherer for the /metrics route.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
