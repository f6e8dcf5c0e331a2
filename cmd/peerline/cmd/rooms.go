package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuldeep921997/peerline/internal/protocol"
	"github.com/kuldeep921997/peerline/internal/ui"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms <room-id>",
	Short: "Show who is in a room",
	Long: `Query the rendezvous server for a room's participant list without
joining it.

Examples:
  peerline rooms standup`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRoom(args[0])
	},
}

func showRoom(roomID string) error {
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

	ctx.Client.Send(&protocol.Message{Type: protocol.TypeGetRoomInfo, RoomID: roomID})
	select {
	case msg := <-ctx.Handler.RoomInfo:
		if msg.Success != nil && !*msg.Success {
			return fmt.Errorf("room info: %s", msg.Reason)
		}
		fmt.Println()
		ui.PrintInfof("Room %s has %d participant(s)", ui.BoldStyle.Render(roomID), msg.ParticipantCount)
		rows := make([]ui.ParticipantRow, len(msg.Participants))
		for i, id := range msg.Participants {
			rows[i] = ui.ParticipantRow{Index: i + 1, ID: id, Note: ""}
		}
		ui.RenderParticipantTable(rows)
	case <-ctx.Handler.Disconnected:
		return fmt.Errorf("lost connection to server")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)
}
