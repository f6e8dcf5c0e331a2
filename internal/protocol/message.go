package protocol

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// MessageType tags every frame exchanged over the signaling socket.
type MessageType string

// Client to service.
const (
	TypeCreateRoom  MessageType = "create-room"
	TypeJoinRoom    MessageType = "join-room"
	TypeGetRoomInfo MessageType = "get-room-info"
)

// Relayed peer to peer (the service never inspects the payload).
const (
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeICECandidate MessageType = "ice-candidate"
)

// Service to client.
const (
	TypeWelcome     MessageType = "welcome"
	TypeRoomCreated MessageType = "room-created"
	TypeRoomJoined  MessageType = "room-joined"
	TypeRoomInfo    MessageType = "room-info"
	TypeUserJoined  MessageType = "user-joined"
	TypeUserLeft    MessageType = "user-left"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// SessionDescription is a JSON-friendly SDP offer/answer. The wire format
// stays independent of the WebRTC library; conversion happens at the edge.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func DescriptionFromPion(desc webrtc.SessionDescription) SessionDescription {
	return SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

func (s SessionDescription) ToPion() (webrtc.SessionDescription, error) {
	var t webrtc.SDPType
	switch s.Type {
	case "offer":
		t = webrtc.SDPTypeOffer
	case "answer":
		t = webrtc.SDPTypeAnswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", s.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: s.SDP}, nil
}

// ICECandidate mirrors the browser's RTCIceCandidateInit shape.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

func CandidateFromPion(init webrtc.ICECandidateInit) ICECandidate {
	return ICECandidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func (c ICECandidate) ToPion() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// Message is the single frame type for both directions. Which fields are
// meaningful depends on Type; Validate enforces the per-type contract for
// client-originated frames.
type Message struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"roomId,omitempty"`

	// Response fields.
	Success *bool  `json:"success,omitempty"`
	Reason  string `json:"message,omitempty"`

	// Membership fields.
	ParticipantCount     int      `json:"participantCount,omitempty"`
	Participants         []string `json:"participants,omitempty"`
	ExistingParticipants []string `json:"existingParticipants,omitempty"`
	UserID               string   `json:"userId,omitempty"`

	// Relay addressing. TargetID is set by the sender, SenderID is stamped
	// by the service before forwarding.
	TargetID string `json:"targetId,omitempty"`
	SenderID string `json:"senderId,omitempty"`

	// Signaling payloads, opaque to the service.
	Offer     *SessionDescription `json:"offer,omitempty"`
	Answer    *SessionDescription `json:"answer,omitempty"`
	Candidate *ICECandidate       `json:"candidate,omitempty"`
}

// IsRelay reports whether the message is addressed to another participant
// rather than to the service itself.
func (m *Message) IsRelay() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// Validate checks a client-originated message against the wire contract.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeCreateRoom, TypeJoinRoom, TypeGetRoomInfo:
		if m.RoomID == "" {
			return fmt.Errorf("%s message missing roomId", m.Type)
		}
	case TypeOffer:
		if m.TargetID == "" {
			return fmt.Errorf("offer message missing targetId")
		}
		if m.Offer == nil {
			return fmt.Errorf("offer message missing offer")
		}
		if m.Offer.Type != "offer" {
			return fmt.Errorf("offer message has sdp type %q", m.Offer.Type)
		}
	case TypeAnswer:
		if m.TargetID == "" {
			return fmt.Errorf("answer message missing targetId")
		}
		if m.Answer == nil {
			return fmt.Errorf("answer message missing answer")
		}
		if m.Answer.Type != "answer" {
			return fmt.Errorf("answer message has sdp type %q", m.Answer.Type)
		}
	case TypeICECandidate:
		if m.TargetID == "" {
			return fmt.Errorf("ice-candidate message missing targetId")
		}
		if m.Candidate == nil {
			return fmt.Errorf("ice-candidate message missing candidate")
		}
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	return nil
}

// Bool returns a pointer for the Success field.
func Bool(v bool) *bool { return &v }
