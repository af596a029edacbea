package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peerwave/peerwave/internal/call"
	"github.com/peerwave/peerwave/internal/config"
	"github.com/peerwave/peerwave/internal/roomid"
	"github.com/peerwave/peerwave/internal/ui"
)

var (
	flagCallDomain   string
	flagCallSTUN     string
	flagCallTURN     string
	flagCallTURNUser string
	flagCallTURNPass string
	flagCallRelay    bool
)

var callCmd = &cobra.Command{
	Use:     "call [room-id|url]",
	Aliases: []string{"c"},
	Short:   "Start or join a peer-to-peer call",
	Long: `Start a new call or join an existing one using WebRTC technology.

With no argument a fresh room is created and its link printed for sharing.
Pass a room ID or a call link to join someone who is already waiting.

Examples:
  peerwave call
  peerwave call misty-otter-harbor-dawn
  peerwave call https://peerwave.qzz.io/r/misty-otter-harbor-dawn
  peerwave call misty-otter-harbor-dawn --relay`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := ""
		if len(args) == 1 {
			input = args[0]
		}
		return runCall(input)
	},
}

func runCall(input string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagCallDomain,
		STUNServer: flagCallSTUN,
		TURNServer: flagCallTURN,
		TURNUser:   flagCallTURNUser,
		TURNPass:   flagCallTURNPass,
		ForceRelay: flagCallRelay,
	})
	if err != nil {
		return err
	}

	roomID, err := resolveRoom(cfg, input)
	if err != nil {
		return err
	}

	fmt.Println()
	spinner := ui.NewConnectionSpinner("Connecting to relay...")
	spinner.Start()

	session := call.NewSession(cfg)
	if err := session.Start(context.Background(), roomID); err != nil {
		spinner.Error("Could not reach the relay")
		return err
	}
	spinner.Stop()

	if err := ui.RunCall(session, roomID, cfg.RoomLink(roomID)); err != nil {
		session.End()
		return err
	}
	session.End()

	summary := session.Summary()
	fmt.Println()
	ui.RenderCallSummary(ui.CallSummary{
		Status:   summary.Status.String(),
		RoomID:   summary.RoomID,
		Role:     summary.Role,
		Duration: summary.Duration.String(),
	})

	return nil
}

// resolveRoom turns the user's input into a room id, minting a fresh one when
// nothing was given.
func resolveRoom(cfg *config.Config, input string) (string, error) {
	if input == "" {
		spinner := ui.NewSimpleSpinner("Creating room...")
		spinner.Start()
		id, err := roomid.Fetch(context.Background(), cfg.RoomIDURL)
		if err != nil {
			spinner.Error("Could not create a room")
			return "", err
		}
		spinner.Stop()
		return id, nil
	}
	return parseRoomInput(input)
}

func parseRoomInput(input string) (string, error) {
	if strings.Contains(input, "://") || strings.Contains(input, ".") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		ui.PrintInfof("Joining room: %s", roomID)
		return roomID, nil
	}
	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVar(&flagCallDomain, "domain", "", "Custom domain")
	callCmd.Flags().StringVarP(&flagCallSTUN, "stun", "s", "", "Custom STUN server")
	callCmd.Flags().StringVarP(&flagCallTURN, "turn", "t", "", "Custom TURN server")
	callCmd.Flags().StringVar(&flagCallTURNUser, "turn-user", "", "TURN username")
	callCmd.Flags().StringVar(&flagCallTURNPass, "turn-pass", "", "TURN password")
	callCmd.Flags().BoolVarP(&flagCallRelay, "relay", "r", false, "Force relay mode")
}
