package session

import (
	"github.com/kuldeep921997/peerline/internal/protocol"
)

// State is the coordinator-visible lifecycle of one PeerSession. It
// mirrors the transport's own states but adds the decision layer around
// them; Renegotiating is a first-class state so a concurrent second
// renegotiation is unrepresentable rather than guarded by a flag.
type State int

const (
	StateNew State = iota
	StateNegotiating
	StateConnecting
	StateConnected
	StateRenegotiating
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateNegotiating:
		return "negotiating"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRenegotiating:
		return "renegotiating"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the session can never leave this state. A
// fresh session must be created to retry after Failed.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Role records which side originated the current offer/answer exchange.
type Role int

const (
	RoleNone Role = iota
	RoleOfferer
	RoleAnswerer
)

// Event is an input to the machine: a local decision, a relayed signal,
// or a transport notification.
type Event interface{ isEvent() }

type (
	// EvInitiate is the local decision to start the handshake: the
	// discoverer creates the data channel and sends the first offer.
	EvInitiate struct{}

	// EvRemoteOffer is a relayed offer. On a session that already exists
	// it is always a renegotiation, never a second handshake.
	EvRemoteOffer struct{ Offer protocol.SessionDescription }

	// EvRemoteAnswer is a relayed answer to our outstanding offer.
	EvRemoteAnswer struct{ Answer protocol.SessionDescription }

	// EvRemoteCandidate is a relayed ICE candidate. Candidates arriving
	// before the remote description are queued, never applied early.
	EvRemoteCandidate struct{ Candidate protocol.ICECandidate }

	// EvLocalAnswerSent reports that the driver finished the answerer's
	// description pair (remote offer applied, local answer sent).
	EvLocalAnswerSent struct{}

	// EvTrackAdded reports that a new outbound track needs a fresh
	// offer/answer exchange on this same session.
	EvTrackAdded struct{}

	// EvICEConnected and EvICEFailed are transport connectivity
	// notifications.
	EvICEConnected struct{}
	EvICEFailed    struct{}

	// EvNegotiationError reports that a description exchange threw.
	EvNegotiationError struct{}

	// EvRemoteLeft and EvHangup tear the session down.
	EvRemoteLeft struct{}
	EvHangup     struct{}
)

func (EvInitiate) isEvent()         {}
func (EvRemoteOffer) isEvent()      {}
func (EvRemoteAnswer) isEvent()     {}
func (EvRemoteCandidate) isEvent()  {}
func (EvLocalAnswerSent) isEvent()  {}
func (EvTrackAdded) isEvent()       {}
func (EvICEConnected) isEvent()     {}
func (EvICEFailed) isEvent()        {}
func (EvNegotiationError) isEvent() {}
func (EvRemoteLeft) isEvent()       {}
func (EvHangup) isEvent()           {}

// Effect is a command the driver must execute against the transport or
// the signaling channel. The machine itself performs no I/O.
type Effect interface{ isEffect() }

type (
	// FxCreateDataChannel opens the session's single data channel.
	FxCreateDataChannel struct{ Label string }

	// FxSendOffer makes the driver create an offer, set it locally and
	// relay it.
	FxSendOffer struct{ Renegotiation bool }

	// FxAcceptOffer makes the driver apply the remote offer, answer it
	// and relay the answer, then feed EvLocalAnswerSent back in.
	FxAcceptOffer struct{ Offer protocol.SessionDescription }

	// FxAcceptAnswer makes the driver apply the remote answer.
	FxAcceptAnswer struct{ Answer protocol.SessionDescription }

	// FxApplyCandidates applies candidates in arrival order.
	FxApplyCandidates struct{ Candidates []protocol.ICECandidate }

	// FxResetTransport discards the peer connection and builds a fresh
	// one, re-attaching local tracks. Used when yielding on glare.
	FxResetTransport struct{}

	// FxClose tears down the transport and releases remote track
	// references.
	FxClose struct{}

	// FxStateChanged notifies the presentation layer.
	FxStateChanged struct{ State State }
)

func (FxCreateDataChannel) isEffect() {}
func (FxSendOffer) isEffect()         {}
func (FxAcceptOffer) isEffect()       {}
func (FxAcceptAnswer) isEffect()      {}
func (FxApplyCandidates) isEffect()   {}
func (FxResetTransport) isEffect()    {}
func (FxClose) isEffect()             {}
func (FxStateChanged) isEffect()      {}

// Machine is the per-PeerSession transition function. Step is
// deterministic and free of I/O: feeding the same events in the same
// order always yields the same states and effects.
type Machine struct {
	LocalID  string
	RemoteID string

	state State
	role  Role

	remoteDescriptionSet bool
	pending              []protocol.ICECandidate
}

func NewMachine(localID, remoteID string) *Machine {
	return &Machine{LocalID: localID, RemoteID: remoteID, state: StateNew}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Role() Role   { return m.role }

// polite reports whether this side yields on glare. Exactly one side of
// any pair is polite because participant ids are unique.
func (m *Machine) polite() bool { return m.LocalID < m.RemoteID }

// Step advances the machine and returns the effects the driver must run.
// Terminal states absorb every event.
func (m *Machine) Step(ev Event) []Effect {
	if m.state.Terminal() {
		return nil
	}

	switch ev := ev.(type) {
	case EvInitiate:
		if m.state != StateNew {
			return nil
		}
		m.role = RoleOfferer
		return m.to(StateNegotiating,
			FxCreateDataChannel{Label: "chat"},
			FxSendOffer{},
		)

	case EvRemoteOffer:
		return m.stepRemoteOffer(ev)

	case EvRemoteAnswer:
		switch m.state {
		case StateNegotiating:
			if m.role != RoleOfferer {
				return nil
			}
			m.remoteDescriptionSet = true
			fx := append([]Effect{FxAcceptAnswer{Answer: ev.Answer}}, m.flush()...)
			return m.to(StateConnecting, fx...)
		case StateRenegotiating:
			m.remoteDescriptionSet = true
			fx := append([]Effect{FxAcceptAnswer{Answer: ev.Answer}}, m.flush()...)
			return m.to(StateConnected, fx...)
		}
		return nil

	case EvLocalAnswerSent:
		switch m.state {
		case StateNegotiating:
			return m.to(StateConnecting)
		case StateRenegotiating:
			return m.to(StateConnected)
		}
		return nil

	case EvRemoteCandidate:
		if !m.remoteDescriptionSet {
			m.pending = append(m.pending, ev.Candidate)
			return nil
		}
		return []Effect{FxApplyCandidates{Candidates: []protocol.ICECandidate{ev.Candidate}}}

	case EvTrackAdded:
		if m.state != StateConnected {
			return nil
		}
		return m.to(StateRenegotiating, FxSendOffer{Renegotiation: true})

	case EvICEConnected:
		if m.state == StateConnecting {
			return m.to(StateConnected)
		}
		return nil

	case EvICEFailed, EvNegotiationError:
		return m.to(StateFailed, FxClose{})

	case EvRemoteLeft, EvHangup:
		return m.to(StateClosed, FxClose{})
	}

	return nil
}

func (m *Machine) stepRemoteOffer(ev EvRemoteOffer) []Effect {
	switch m.state {
	case StateNew:
		m.role = RoleAnswerer
		m.remoteDescriptionSet = true
		fx := append([]Effect{FxAcceptOffer{Offer: ev.Offer}}, m.flush()...)
		return m.to(StateNegotiating, fx...)

	case StateNegotiating:
		if m.role == RoleOfferer {
			if !m.polite() {
				// The remote is polite and will yield to our offer.
				return nil
			}
			// Yield: discard our pending offer along with its transport
			// and answer theirs instead.
			m.role = RoleAnswerer
			m.remoteDescriptionSet = true
			fx := []Effect{FxResetTransport{}, FxAcceptOffer{Offer: ev.Offer}}
			return append(fx, m.flush()...)
		}
		// A re-offer while we are already answering supersedes the
		// previous one.
		m.remoteDescriptionSet = true
		return append([]Effect{FxAcceptOffer{Offer: ev.Offer}}, m.flush()...)

	case StateConnecting, StateConnected:
		// Renegotiation on the existing session, never a second one.
		m.remoteDescriptionSet = true
		fx := append([]Effect{FxAcceptOffer{Offer: ev.Offer}}, m.flush()...)
		return m.to(StateRenegotiating, fx...)

	case StateRenegotiating:
		m.remoteDescriptionSet = true
		return append([]Effect{FxAcceptOffer{Offer: ev.Offer}}, m.flush()...)
	}
	return nil
}

// to transitions into s, appending a FxStateChanged when the state
// actually changes.
func (m *Machine) to(s State, fx ...Effect) []Effect {
	if s != m.state {
		m.state = s
		fx = append(fx, FxStateChanged{State: s})
	}
	return fx
}

// flush drains the candidate queue in arrival order. Called exactly when
// a remote description lands.
func (m *Machine) flush() []Effect {
	if len(m.pending) == 0 {
		return nil
	}
	queued := m.pending
	m.pending = nil
	return []Effect{FxApplyCandidates{Candidates: queued}}
}
