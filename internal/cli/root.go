package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/peerwave/peerwave/internal/ui"
	"github.com/peerwave/peerwave/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "peerwave",
	Short:   "Peer-to-peer audio and video calls from your terminal, powered by WebRTC",
	Long:    `PeerWave is a command-line tool for making direct peer-to-peer calls using WebRTC technology. The signaling relay only brokers the handshake; once connected, media flows directly between peers. Share a room link with one other person and talk.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
