package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ParticipantRow is one participant in the room table.
type ParticipantRow struct {
	Index int
	ID    string
	Note  string
}

// ParticipantTableView renders the room roster.
func ParticipantTableView(rows []ParticipantRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No participants")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(table.Row{"#", "Participant", "Note"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Index, r.ID, r.Note})
	}
	return t.Render()
}

// RenderParticipantTable outputs the roster directly to stdout.
func RenderParticipantTable(rows []ParticipantRow) {
	fmt.Println(ParticipantTableView(rows))
}

// RoomInfoView renders the summary box shown after hosting a room.
func RoomInfoView(roomID, serverURL string) string {
	content := fmt.Sprintf("%s Room Ready!\n\n%s Room ID:  %s\n%s Server:   %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		IconConnect, MutedStyle.Render(serverURL),
	)
	return SuccessBoxStyle.Render(content)
}

// RenderRoomInfo outputs the room summary box directly to stdout.
func RenderRoomInfo(roomID, serverURL string) {
	fmt.Println(RoomInfoView(roomID, serverURL))
}
