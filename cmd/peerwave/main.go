package main

import (
	"github.com/peerwave/peerwave/internal/cli"
	"github.com/peerwave/peerwave/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cli.Execute()
}
