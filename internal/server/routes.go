package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kuldeep921997/peerline/internal/metrics"
	"github.com/kuldeep921997/peerline/internal/protocol"
	"github.com/kuldeep921997/peerline/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Signaling payloads are opaque and per-connection state is scoped to
	// the socket, so any origin may connect. Tighten against the frontend
	// domain when deploying behind one.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades requests to websocket
// participants of the given hub.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "err", err)
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.NewString(),
			Send: make(chan *protocol.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// NewMux wires the service routes: websocket endpoint, health check and
// prometheus metrics.
func NewMux(hub *signaling.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Rendezvous service is healthy."))
	})

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", ServeWs(hub))

	return mux
}
