package signaling

import (
	"testing"
	"time"

	"github.com/kuldeep921997/peerline/internal/protocol"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub, id string) *Client {
	t.Helper()
	c := &Client{Hub: h, ID: id, Send: make(chan *protocol.Message, 16)}
	h.Register <- c

	welcome := recv(t, c)
	if welcome.Type != protocol.TypeWelcome || welcome.UserID != id {
		t.Fatalf("welcome = %+v, want type=welcome userId=%s", welcome, id)
	}
	return c
}

func recv(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if !ok {
			t.Fatalf("send channel for %s closed", c.ID)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message to %s", c.ID)
	}
	return nil
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message to %s: %+v", c.ID, msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func createRoom(t *testing.T, h *Hub, c *Client, roomID string) *protocol.Message {
	t.Helper()
	h.Inbound <- inbound{msg: &protocol.Message{Type: protocol.TypeCreateRoom, RoomID: roomID}, from: c}
	return recv(t, c)
}

func joinRoom(t *testing.T, h *Hub, c *Client, roomID string) *protocol.Message {
	t.Helper()
	h.Inbound <- inbound{msg: &protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID}, from: c}
	return recv(t, c)
}

func roomInfo(t *testing.T, h *Hub, c *Client, roomID string) *protocol.Message {
	t.Helper()
	h.Inbound <- inbound{msg: &protocol.Message{Type: protocol.TypeGetRoomInfo, RoomID: roomID}, from: c}
	return recv(t, c)
}

func TestCreateRoomTwiceFails(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")
	p2 := connect(t, h, "p2")

	resp := createRoom(t, h, p1, "r1")
	if resp.Success == nil || !*resp.Success {
		t.Fatalf("first create failed: %+v", resp)
	}
	if resp.ParticipantCount != 1 {
		t.Fatalf("participantCount = %d, want 1", resp.ParticipantCount)
	}

	resp = createRoom(t, h, p2, "r1")
	if resp.Success == nil || *resp.Success {
		t.Fatalf("second create succeeded: %+v", resp)
	}
	if resp.Reason != protocol.ErrRoomExists.Error() {
		t.Fatalf("reason = %q, want %q", resp.Reason, protocol.ErrRoomExists.Error())
	}
}

func TestJoinReturnsExistingAndNotifiesMembers(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")
	p2 := connect(t, h, "p2")

	createRoom(t, h, p1, "r1")

	resp := joinRoom(t, h, p2, "r1")
	if resp.Success == nil || !*resp.Success {
		t.Fatalf("join failed: %+v", resp)
	}
	if len(resp.ExistingParticipants) != 1 || resp.ExistingParticipants[0] != "p1" {
		t.Fatalf("existingParticipants = %v, want [p1]", resp.ExistingParticipants)
	}
	if resp.ParticipantCount != 2 {
		t.Fatalf("participantCount = %d, want 2", resp.ParticipantCount)
	}

	// p1 receives exactly one user-joined.
	notice := recv(t, p1)
	if notice.Type != protocol.TypeUserJoined || notice.UserID != "p2" || notice.ParticipantCount != 2 {
		t.Fatalf("notice = %+v, want user-joined p2 count=2", notice)
	}
	expectNothing(t, p1)
	expectNothing(t, p2)
}

func TestJoinUnknownRoomFails(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")

	resp := joinRoom(t, h, p1, "nope")
	if resp.Success == nil || *resp.Success {
		t.Fatalf("join succeeded: %+v", resp)
	}
	if resp.Reason != protocol.ErrRoomNotFound.Error() {
		t.Fatalf("reason = %q, want %q", resp.Reason, protocol.ErrRoomNotFound.Error())
	}
}

func TestLeaveKeepsRoomWithRemainingParticipant(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")
	p2 := connect(t, h, "p2")

	createRoom(t, h, p1, "r1")
	joinRoom(t, h, p2, "r1")
	recv(t, p1) // user-joined

	h.Unregister <- p2

	left := recv(t, p1)
	if left.Type != protocol.TypeUserLeft || left.UserID != "p2" || left.ParticipantCount != 1 {
		t.Fatalf("left = %+v, want user-left p2 count=1", left)
	}
	expectNothing(t, p1)

	info := roomInfo(t, h, p1, "r1")
	if info.Success == nil || !*info.Success || info.ParticipantCount != 1 {
		t.Fatalf("room info after leave = %+v, want success count=1", info)
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")
	p2 := connect(t, h, "p2")

	createRoom(t, h, p1, "r1")
	h.Unregister <- p1

	resp := roomInfo(t, h, p2, "r1")
	if resp.Success == nil || *resp.Success {
		t.Fatalf("room info after deletion = %+v, want failure", resp)
	}
	if resp.Reason != protocol.ErrRoomNotFound.Error() {
		t.Fatalf("reason = %q, want %q", resp.Reason, protocol.ErrRoomNotFound.Error())
	}
}

func TestRelayStampsSenderID(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")
	p2 := connect(t, h, "p2")

	createRoom(t, h, p1, "r1")
	joinRoom(t, h, p2, "r1")
	recv(t, p1) // user-joined

	h.Inbound <- inbound{
		msg: &protocol.Message{
			Type:     protocol.TypeOffer,
			TargetID: "p2",
			Offer:    &protocol.SessionDescription{Type: "offer", SDP: "v=0"},
		},
		from: p1,
	}

	relayed := recv(t, p2)
	if relayed.Type != protocol.TypeOffer {
		t.Fatalf("relayed type = %s, want offer", relayed.Type)
	}
	if relayed.SenderID != "p1" {
		t.Fatalf("senderId = %q, want p1", relayed.SenderID)
	}
	if relayed.TargetID != "" {
		t.Fatalf("targetId = %q, want empty after relay", relayed.TargetID)
	}
	if relayed.Offer == nil || relayed.Offer.SDP != "v=0" {
		t.Fatalf("offer payload = %+v, want verbatim", relayed.Offer)
	}
}

func TestRelayToUnknownTargetIsSilentlyDropped(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")

	h.Inbound <- inbound{
		msg: &protocol.Message{
			Type:      protocol.TypeICECandidate,
			TargetID:  "ghost",
			Candidate: &protocol.ICECandidate{Candidate: "candidate:1"},
		},
		from: p1,
	}

	// Best-effort: no error comes back to the sender.
	expectNothing(t, p1)
}

func TestCreateWhileInRoomFails(t *testing.T) {
	h := startHub(t)
	p1 := connect(t, h, "p1")

	createRoom(t, h, p1, "r1")
	resp := createRoom(t, h, p1, "r2")
	if resp.Success == nil || *resp.Success {
		t.Fatalf("second membership allowed: %+v", resp)
	}
}
