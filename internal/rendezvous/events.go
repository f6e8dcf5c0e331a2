package rendezvous

import (
	"github.com/kuldeep921997/peerline/internal/protocol"
)

// MemberEvent describes a membership change broadcast by the service.
type MemberEvent struct {
	UserID string
	Count  int
}

// Handler routes incoming service messages to typed channels. Responses
// (including typed failures, which arrive on the same message kind with
// success=false) go to their own channels; relayed signals go to Signal.
type Handler struct {
	client *Client

	Welcome     chan string
	RoomCreated chan *protocol.Message
	RoomJoined  chan *protocol.Message
	RoomInfo    chan *protocol.Message
	UserJoined  chan MemberEvent
	UserLeft    chan MemberEvent
	Signal      chan *protocol.Message

	// Disconnected closes when the signaling connection drops.
	Disconnected chan struct{}
}

// NewHandler creates a message router over the given client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		Welcome:      make(chan string, 1),
		RoomCreated:  make(chan *protocol.Message, 1),
		RoomJoined:   make(chan *protocol.Message, 1),
		RoomInfo:     make(chan *protocol.Message, 1),
		UserJoined:   make(chan MemberEvent, 8),
		UserLeft:     make(chan MemberEvent, 8),
		Signal:       make(chan *protocol.Message, 32),
		Disconnected: make(chan struct{}),
	}
}

// Start consumes incoming messages until the connection closes. Run it on
// its own goroutine.
func (h *Handler) Start() {
	defer close(h.Disconnected)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeWelcome:
			h.Welcome <- msg.UserID

		case protocol.TypeRoomCreated:
			h.RoomCreated <- msg

		case protocol.TypeRoomJoined:
			h.RoomJoined <- msg

		case protocol.TypeRoomInfo:
			h.RoomInfo <- msg

		case protocol.TypeUserJoined:
			h.UserJoined <- MemberEvent{UserID: msg.UserID, Count: msg.ParticipantCount}

		case protocol.TypeUserLeft:
			h.UserLeft <- MemberEvent{UserID: msg.UserID, Count: msg.ParticipantCount}

		case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
			h.Signal <- msg

		default:
		}
	}
}
