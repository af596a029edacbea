package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/peerwave/peerwave/internal/protocol"
	"github.com/peerwave/peerwave/internal/relay"
)

// Configure the websocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay is deployed behind its own origin; browser clients connect
	// cross-origin from the web app, so all origins are accepted here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades requests to websocket
// connections and hands them to the registry.
func ServeWs(registry *relay.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := relay.NewClient(uuid.NewString(), registry, conn)

		// Tell the client its assigned connection id before anything else;
		// relayed messages identify peers by this id.
		if welcome, err := protocol.NewMessage(protocol.TypeWelcome, "", protocol.WelcomePayload{ClientID: client.ID}); err == nil {
			client.Send <- welcome
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

// Health reports liveness for load balancers.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}
