package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuldeep921997/peerline/internal/protocol"
	"github.com/kuldeep921997/peerline/internal/ui"
)

var (
	hostAudio bool
	hostVideo bool
)

var hostCmd = &cobra.Command{
	Use:     "host <room-id>",
	Aliases: []string{"h"},
	Short:   "Create a room and wait for participants",
	Long: `Create a room on the rendezvous server and wait for others to join.
Sessions are negotiated directly with each participant as they arrive.

Examples:
  peerline host standup
  peerline host standup --audio --video
  peerline host standup --server ws://signal.example.com/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRoom(args[0])
	},
}

func hostRoom(roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	ctx.Client.Send(&protocol.Message{Type: protocol.TypeCreateRoom, RoomID: roomID})
	select {
	case msg := <-ctx.Handler.RoomCreated:
		if msg.Success != nil && !*msg.Success {
			return fmt.Errorf("create room: %s", msg.Reason)
		}
	case <-ctx.Handler.Disconnected:
		return fmt.Errorf("lost connection to server")
	}

	ui.RenderRoomInfo(roomID, cfg.ServerURL)

	return runCall(ctx, hostAudio, hostVideo)
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().BoolVar(&hostAudio, "audio", false, "Start with an audio track")
	hostCmd.Flags().BoolVar(&hostVideo, "video", false, "Start with a video track")
}
