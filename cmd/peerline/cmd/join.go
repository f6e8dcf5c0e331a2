package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuldeep921997/peerline/internal/protocol"
	"github.com/kuldeep921997/peerline/internal/ui"
)

var (
	joinAudio bool
	joinVideo bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room created by another participant. Everyone already in the
room opens a session toward you; nothing to accept manually.

Examples:
  peerline join standup
  peerline join standup --audio`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
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

	ctx.Client.Send(&protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID})
	var existing []string
	select {
	case msg := <-ctx.Handler.RoomJoined:
		if msg.Success != nil && !*msg.Success {
			return fmt.Errorf("join room: %s", msg.Reason)
		}
		existing = msg.ExistingParticipants
	case <-ctx.Handler.Disconnected:
		return fmt.Errorf("lost connection to server")
	}

	ui.PrintSuccessf("Joined %s", ui.BoldStyle.Render(roomID))
	if len(existing) > 0 {
		rows := make([]ui.ParticipantRow, len(existing))
		for i, id := range existing {
			rows[i] = ui.ParticipantRow{Index: i + 1, ID: id, Note: "connecting"}
		}
		ui.RenderParticipantTable(rows)
	}

	return runCall(ctx, joinAudio, joinVideo)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().BoolVar(&joinAudio, "audio", false, "Start with an audio track")
	joinCmd.Flags().BoolVar(&joinVideo, "video", false, "Start with a video track")
}
