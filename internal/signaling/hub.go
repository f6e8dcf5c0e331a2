package signaling

import (
	"log/slog"

	"github.com/kuldeep921997/peerline/internal/metrics"
	"github.com/kuldeep921997/peerline/internal/protocol"
)

// Hub is the central brain of the rendezvous service. It owns every room
// and participant, and all mutation happens on the single Run goroutine,
// so check-then-mutate sequences are race-free without locking.
type Hub struct {
	// rooms maps room ids to Room instances.
	rooms map[string]*Room

	// participants maps connection-scoped ids to their clients. Relay
	// targets are resolved here, independent of room membership.
	participants map[string]*Client

	// Register is the channel for attaching new connections.
	Register chan *Client

	// Unregister is the channel for detaching closed connections.
	Unregister chan *Client

	// Inbound carries parsed client messages into the event loop.
	Inbound chan inbound

	done chan struct{}
}

// NewHub creates an empty hub. Call Run on its own goroutine before
// registering clients.
func NewHub() *Hub {
	return &Hub{
		rooms:        make(map[string]*Room),
		participants: make(map[string]*Client),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		Inbound:      make(chan inbound),
		done:         make(chan struct{}),
	}
}

// Stop terminates the event loop. Used for graceful shutdown and tests.
func (h *Hub) Stop() { close(h.done) }

// Run processes registration, disconnection and signaling events until
// Stop is called. Every event runs to completion before the next one, so
// room state is always consistent between events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleUnregister(client)

		case in := <-h.Inbound:
			if in.msg.IsRelay() {
				h.handleRelay(in)
				continue
			}

			switch in.msg.Type {
			case protocol.TypeCreateRoom:
				h.handleCreateRoom(in)
			case protocol.TypeJoinRoom:
				h.handleJoinRoom(in)
			case protocol.TypeGetRoomInfo:
				h.handleRoomInfo(in)
			default:
				slog.Debug("unhandled message type", "type", in.msg.Type)
			}

		case <-h.done:
			return
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.participants[c.ID] = c
	metrics.ParticipantsConnected.Inc()
	slog.Info("participant connected", "participant", c.ID)

	// Tell the participant its connection-scoped id; everything it sends
	// later is correlated by the hub, but peers address it by this id.
	h.send(c, &protocol.Message{Type: protocol.TypeWelcome, UserID: c.ID})
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.participants[c.ID]; !ok {
		return
	}
	delete(h.participants, c.ID)
	metrics.ParticipantsConnected.Dec()
	slog.Info("participant disconnected", "participant", c.ID)

	if c.RoomID != "" {
		if room, ok := h.rooms[c.RoomID]; ok {
			room.remove(c)
			if room.count() == 0 {
				delete(h.rooms, room.ID)
				metrics.RoomsActive.Dec()
				slog.Info("room deleted", "room", room.ID)
			} else {
				h.broadcast(room, &protocol.Message{
					Type:             protocol.TypeUserLeft,
					UserID:           c.ID,
					ParticipantCount: room.count(),
				})
			}
		}
		c.RoomID = ""
	}

	close(c.Send)
}

func (h *Hub) handleCreateRoom(in inbound) {
	roomID := in.msg.RoomID

	if in.from.RoomID != "" {
		h.fail(in.from, protocol.TypeRoomCreated, roomID, "already in a room")
		return
	}
	if _, ok := h.rooms[roomID]; ok {
		slog.Debug("create failed, room exists", "room", roomID)
		h.fail(in.from, protocol.TypeRoomCreated, roomID, protocol.ErrRoomExists.Error())
		return
	}

	room := &Room{ID: roomID}
	room.add(in.from)
	h.rooms[roomID] = room
	in.from.RoomID = roomID
	metrics.RoomsActive.Inc()
	slog.Info("room created", "room", roomID, "participant", in.from.ID)

	h.send(in.from, &protocol.Message{
		Type:             protocol.TypeRoomCreated,
		Success:          protocol.Bool(true),
		RoomID:           roomID,
		ParticipantCount: room.count(),
	})
}

func (h *Hub) handleJoinRoom(in inbound) {
	roomID := in.msg.RoomID

	if in.from.RoomID != "" {
		h.fail(in.from, protocol.TypeRoomJoined, roomID, "already in a room")
		return
	}
	room, ok := h.rooms[roomID]
	if !ok {
		slog.Debug("join failed, room not found", "room", roomID)
		h.fail(in.from, protocol.TypeRoomJoined, roomID, protocol.ErrRoomNotFound.Error())
		return
	}

	room.add(in.from)
	in.from.RoomID = roomID
	existing := room.idsExcept(in.from)
	slog.Info("participant joined room", "room", roomID, "participant", in.from.ID)

	// The joiner learns whom it may be contacted by; the prior members
	// learn who arrived. The user-joined broadcast is fire-and-forget and
	// not part of the join response.
	h.send(in.from, &protocol.Message{
		Type:                 protocol.TypeRoomJoined,
		Success:              protocol.Bool(true),
		RoomID:               roomID,
		ParticipantCount:     room.count(),
		ExistingParticipants: existing,
	})

	notice := &protocol.Message{
		Type:             protocol.TypeUserJoined,
		UserID:           in.from.ID,
		ParticipantCount: room.count(),
	}
	for _, p := range room.Participants {
		if p != in.from {
			h.send(p, notice)
		}
	}
}

func (h *Hub) handleRoomInfo(in inbound) {
	room, ok := h.rooms[in.msg.RoomID]
	if !ok {
		h.fail(in.from, protocol.TypeRoomInfo, in.msg.RoomID, protocol.ErrRoomNotFound.Error())
		return
	}

	h.send(in.from, &protocol.Message{
		Type:             protocol.TypeRoomInfo,
		Success:          protocol.Bool(true),
		RoomID:           room.ID,
		ParticipantCount: room.count(),
		Participants:     room.participantIDs(),
	})
}

// handleRelay forwards an offer/answer/ice-candidate verbatim to the
// target, stamped with the sender's id. Targets without an open transport
// are dropped silently: signaling is best-effort and the peers' continuous
// candidate gathering self-heals.
func (h *Hub) handleRelay(in inbound) {
	target, ok := h.participants[in.msg.TargetID]
	if !ok {
		metrics.SignalsDropped.Inc()
		slog.Debug("relay dropped, target not connected",
			"type", in.msg.Type, "sender", in.from.ID, "target", in.msg.TargetID)
		return
	}

	out := *in.msg
	out.SenderID = in.from.ID
	out.TargetID = ""

	metrics.SignalsRelayed.WithLabelValues(string(in.msg.Type)).Inc()
	h.send(target, &out)
}

func (h *Hub) broadcast(room *Room, msg *protocol.Message) {
	for _, p := range room.Participants {
		h.send(p, msg)
	}
}

// fail sends a typed failure back to the caller only; failures are never
// broadcast.
func (h *Hub) fail(c *Client, t protocol.MessageType, roomID, reason string) {
	h.send(c, &protocol.Message{
		Type:    t,
		Success: protocol.Bool(false),
		RoomID:  roomID,
		Reason:  reason,
	})
}

// send enqueues without blocking the event loop; a participant whose queue
// is full loses the message rather than stalling everyone else.
func (h *Hub) send(c *Client, msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("send queue full, dropping message", "participant", c.ID, "type", msg.Type)
	}
}
