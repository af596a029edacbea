package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/peerwave/peerwave/internal/config"
	"github.com/peerwave/peerwave/internal/logging"
	"github.com/peerwave/peerwave/internal/relay"
	"github.com/peerwave/peerwave/internal/roomid"
	"github.com/peerwave/peerwave/internal/server"
)

func main() {
	logging.Init()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	registry := relay.NewRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.Health)
	mux.HandleFunc("/room", roomid.Handler)
	mux.HandleFunc("/ws", server.ServeWs(registry))

	slog.Info("starting signaling relay", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
