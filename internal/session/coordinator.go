package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kuldeep921997/peerline/internal/chat"
	"github.com/kuldeep921997/peerline/internal/config"
	"github.com/kuldeep921997/peerline/internal/media"
	"github.com/kuldeep921997/peerline/internal/protocol"
)

// SignalSender relays a message to the rendezvous service. Implemented by
// rendezvous.Client; tests plug in loopback routers.
type SignalSender interface {
	Send(msg *protocol.Message) error
}

// StateChange notifies the presentation layer about one session. Err is
// set only alongside StateFailed and names the terminal cause.
type StateChange struct {
	Peer  string
	State State
	Err   error
}

// ChatEvent carries a received data-channel frame.
type ChatEvent struct {
	Peer  string
	Frame chat.Frame
}

// Coordinator owns every PeerSession of one participant. It decides when
// sessions are created and who offers; the per-session machines decide
// everything after that. Sessions for different peers are fully
// independent: a failure in one never touches the others.
type Coordinator struct {
	localID  string
	cfg      *config.Config
	signals  SignalSender
	source   media.Source
	renderer media.Renderer

	mu       sync.Mutex
	sessions map[string]*PeerSession
	handles  map[media.Kind]media.Handle

	states chan StateChange
	chats  chan ChatEvent
}

// New creates a coordinator for the participant with the given
// connection-scoped id. renderer may be nil for data-only participants.
func New(localID string, cfg *config.Config, signals SignalSender, source media.Source, renderer media.Renderer) *Coordinator {
	return &Coordinator{
		localID:  localID,
		cfg:      cfg,
		signals:  signals,
		source:   source,
		renderer: renderer,
		sessions: make(map[string]*PeerSession),
		handles:  make(map[media.Kind]media.Handle),
		states:   make(chan StateChange, 64),
		chats:    make(chan ChatEvent, 64),
	}
}

// States delivers session state transitions to the presentation layer.
func (c *Coordinator) States() <-chan StateChange { return c.states }

// Chats delivers received data-channel frames.
func (c *Coordinator) Chats() <-chan ChatEvent { return c.chats }

// HandleUserJoined reacts to a user-joined broadcast: the side already in
// the room discovered the newcomer and therefore initiates. The joiner
// side never initiates, which removes offer glare from the initial
// handshake by construction.
func (c *Coordinator) HandleUserJoined(userID string) error {
	c.mu.Lock()
	if _, ok := c.sessions[userID]; ok {
		c.mu.Unlock()
		return nil
	}
	s, err := newPeerSession(c, userID, c.handleSlice())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sessions[userID] = s
	c.mu.Unlock()

	s.dispatch(EvInitiate{})
	return nil
}

// HandleUserLeft closes and discards the session for the departed peer.
// Remote track references are released before this returns.
func (c *Coordinator) HandleUserLeft(userID string) {
	c.mu.Lock()
	s := c.sessions[userID]
	delete(c.sessions, userID)
	c.mu.Unlock()

	if s != nil {
		s.dispatch(EvRemoteLeft{})
	}
}

// HandleSignal routes a relayed message to the session it belongs to. An
// offer from an unknown peer creates the session (we are the answerer);
// answers and candidates for unknown peers are stale and dropped.
func (c *Coordinator) HandleSignal(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeOffer:
		if msg.Offer == nil || msg.SenderID == "" {
			return nil
		}
		s, err := c.sessionForOffer(msg.SenderID)
		if err != nil {
			return err
		}
		s.dispatch(EvRemoteOffer{Offer: *msg.Offer})

	case protocol.TypeAnswer:
		if msg.Answer == nil {
			return nil
		}
		if s := c.session(msg.SenderID); s != nil {
			s.dispatch(EvRemoteAnswer{Answer: *msg.Answer})
		} else {
			slog.Debug("answer for unknown peer dropped", "peer", msg.SenderID)
		}

	case protocol.TypeICECandidate:
		if msg.Candidate == nil {
			return nil
		}
		if s := c.session(msg.SenderID); s != nil {
			s.dispatch(EvRemoteCandidate{Candidate: *msg.Candidate})
		} else {
			slog.Debug("candidate for unknown peer dropped", "peer", msg.SenderID)
		}
	}
	return nil
}

// Initiate creates a fresh session toward a peer, replacing any terminal
// one. This is the manual retry path after an ICE failure; an old failed
// session is discarded, never reused.
func (c *Coordinator) Initiate(userID string) error {
	c.mu.Lock()
	if s, ok := c.sessions[userID]; ok {
		if !s.State().Terminal() {
			c.mu.Unlock()
			return nil
		}
		delete(c.sessions, userID)
	}
	s, err := newPeerSession(c, userID, c.handleSlice())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.sessions[userID] = s
	c.mu.Unlock()

	s.dispatch(EvInitiate{})
	return nil
}

// AddLocalMedia acquires a capture of the given kind and attaches it to
// every session, replacing in place where a sender of that kind already
// exists. Acquisition failures leave established sessions untouched.
func (c *Coordinator) AddLocalMedia(ctx context.Context, kind media.Kind) error {
	h, err := c.source.AcquireMedia(ctx, kind)
	if err != nil {
		return err
	}
	return c.adoptHandle(h)
}

// ShareDisplay swaps the outbound video for a display capture. The video
// slot is replaced in place, so no renegotiation cycle runs on connected
// sessions.
func (c *Coordinator) ShareDisplay(ctx context.Context) error {
	h, err := c.source.AcquireDisplay(ctx)
	if err != nil {
		return err
	}
	return c.adoptHandle(h)
}

// ShareGenerated swaps the outbound video for an application-drawn
// source.
func (c *Coordinator) ShareGenerated(ctx context.Context, frames media.FrameSource) error {
	h, err := c.source.AcquireGenerated(ctx, frames)
	if err != nil {
		return err
	}
	return c.adoptHandle(h)
}

func (c *Coordinator) adoptHandle(h media.Handle) error {
	c.mu.Lock()
	old := c.handles[h.Kind()]
	c.handles[h.Kind()] = h
	sessions := c.sessionSlice()
	c.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.upsertTrack(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if old != nil {
		old.Close()
	}
	return firstErr
}

// SendChat broadcasts a chat line over every open data channel.
func (c *Coordinator) SendChat(body string) {
	c.broadcastFrame(chat.NewText(c.localID, body))
}

// SetMuted stops or resumes outbound audio on every session and announces
// the new state to every peer. No renegotiation runs; the sender slot
// stays in place.
func (c *Coordinator) SetMuted(muted bool) {
	for _, s := range c.sessionSnapshot() {
		s.setAudioMuted(muted)
	}
	c.broadcastFrame(chat.NewMute(c.localID, muted))
}

func (c *Coordinator) broadcastFrame(f chat.Frame) {
	for _, s := range c.sessionSnapshot() {
		if err := s.sendFrame(f); err != nil {
			slog.Debug("frame not delivered", "peer", s.remoteID, "err", err)
		}
	}
}

// Hangup ends the session with one peer.
func (c *Coordinator) Hangup(userID string) error {
	c.mu.Lock()
	s := c.sessions[userID]
	delete(c.sessions, userID)
	c.mu.Unlock()

	if s == nil {
		return newError("hangup", userID, ErrUnknownPeer)
	}
	s.sendFrame(chat.NewBye(c.localID))
	s.dispatch(EvHangup{})
	return nil
}

// Leave tears everything down: every session is closed and every local
// capture released before Leave returns, so no capture device dangles
// after leaving a room.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	sessions := c.sessionSlice()
	c.sessions = make(map[string]*PeerSession)
	handles := make([]media.Handle, 0, len(c.handles))
	for _, h := range c.handles {
		handles = append(handles, h)
	}
	c.handles = make(map[media.Kind]media.Handle)
	c.mu.Unlock()

	for _, s := range sessions {
		s.sendFrame(chat.NewBye(c.localID))
		s.dispatch(EvHangup{})
	}
	for _, h := range handles {
		h.Close()
	}
}

// ConnectionState reports the state of the session with one peer.
func (c *Coordinator) ConnectionState(userID string) (State, bool) {
	if s := c.session(userID); s != nil {
		return s.State(), true
	}
	return StateNew, false
}

// Peers lists the remote ids with live sessions, sorted.
func (c *Coordinator) Peers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Coordinator) session(userID string) *PeerSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[userID]
}

func (c *Coordinator) sessionForOffer(userID string) (*PeerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[userID]; ok {
		return s, nil
	}
	s, err := newPeerSession(c, userID, c.handleSlice())
	if err != nil {
		return nil, err
	}
	c.sessions[userID] = s
	return s, nil
}

func (c *Coordinator) sessionSnapshot() []*PeerSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionSlice()
}

// sessionSlice must be called with c.mu held.
func (c *Coordinator) sessionSlice() []*PeerSession {
	out := make([]*PeerSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

// handleSlice must be called with c.mu held.
func (c *Coordinator) handleSlice() []media.Handle {
	out := make([]media.Handle, 0, len(c.handles))
	for _, h := range c.handles {
		out = append(out, h)
	}
	return out
}

// newPeerConnection builds the transport for one session and wires its
// callbacks into the session's event dispatch.
func (c *Coordinator) newPeerConnection(s *PeerSession) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: c.cfg.ICEServers(),
	})
	if err != nil {
		return nil, err
	}

	pc.OnICECandidate(func(ic *webrtc.ICECandidate) {
		if ic == nil {
			return
		}
		cand := protocol.CandidateFromPion(ic.ToJSON())
		c.sendSignal(&protocol.Message{
			Type:      protocol.TypeICECandidate,
			TargetID:  s.remoteID,
			Candidate: &cand,
		})
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		switch state {
		case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
			s.dispatch(EvICEConnected{})
		case webrtc.ICEConnectionStateFailed:
			s.failICE()
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.addRemoteTrack(track)
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		s.adoptDataChannel(dc)
	})

	return pc, nil
}

// sendSignal relays best-effort: the service drops messages for
// disconnected targets silently, and so do we on a closed signaling
// connection. Continuous candidate gathering self-heals.
func (c *Coordinator) sendSignal(msg *protocol.Message) {
	if err := c.signals.Send(msg); err != nil {
		slog.Debug("signal not sent", "type", msg.Type, "target", msg.TargetID, "err", err)
	}
}

func (c *Coordinator) emitState(peer string, state State, err error) {
	select {
	case c.states <- StateChange{Peer: peer, State: state, Err: err}:
	default:
		slog.Debug("state event dropped, consumer too slow", "peer", peer)
	}
}

func (c *Coordinator) emitChat(peer string, frame chat.Frame) {
	select {
	case c.chats <- ChatEvent{Peer: peer, Frame: frame}:
	default:
		slog.Debug("chat event dropped, consumer too slow", "peer", peer)
	}
}
