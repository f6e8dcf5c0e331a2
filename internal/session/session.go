package session

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kuldeep921997/peerline/internal/chat"
	"github.com/kuldeep921997/peerline/internal/media"
	"github.com/kuldeep921997/peerline/internal/protocol"
)

// PeerSession drives the underlying transport for one remote participant.
// The machine decides, the session executes: every transport mutation
// happens as an effect of a machine step, serialized by the session
// mutex, so two description exchanges can never race on one session.
type PeerSession struct {
	remoteID string
	coord    *Coordinator

	mu      sync.Mutex
	machine *Machine
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel

	// senders holds at most one RTP sender per media kind; adding a
	// second source of the same kind replaces the track in place.
	senders map[media.Kind]*webrtc.RTPSender

	// handles are the local captures attached to this session, kept so a
	// transport reset can re-attach them. Ownership stays with the
	// coordinator.
	handles map[media.Kind]media.Handle

	remoteTracks []*webrtc.TrackRemote
	closed       bool

	// failure records the terminal cause, reported with the Failed state
	// change. First cause wins.
	failure error
}

func newPeerSession(c *Coordinator, remoteID string, handles []media.Handle) (*PeerSession, error) {
	s := &PeerSession{
		remoteID: remoteID,
		coord:    c,
		machine:  NewMachine(c.localID, remoteID),
		senders:  make(map[media.Kind]*webrtc.RTPSender),
		handles:  make(map[media.Kind]media.Handle),
	}

	pc, err := c.newPeerConnection(s)
	if err != nil {
		return nil, newError("create peer connection", remoteID, err)
	}
	s.pc = pc

	for _, h := range handles {
		if err := s.attachTrack(h); err != nil {
			pc.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *PeerSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// RemoteTrackCount reports how many remote track references the session
// still holds. Zero after close.
func (s *PeerSession) RemoteTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.remoteTracks)
}

// SenderCount reports the outbound senders, one slot per media kind.
func (s *PeerSession) SenderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.senders)
}

// dispatch feeds one event through the machine and runs the resulting
// effects, including any follow-up events they produce.
func (s *PeerSession) dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchLocked(ev)
}

// failICE records the terminal cause before feeding the failure event in.
func (s *PeerSession) failICE() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == nil {
		s.failure = newError("ice connectivity", s.remoteID, ErrICEFailed)
	}
	s.dispatchLocked(EvICEFailed{})
}

// setFailure is called with s.mu held, from effect execution.
func (s *PeerSession) setFailure(op string) {
	if s.failure == nil {
		s.failure = newError(op, s.remoteID, ErrNegotiationFailed)
	}
}

func (s *PeerSession) dispatchLocked(ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, fx := range s.machine.Step(next) {
			queue = append(queue, s.apply(fx)...)
		}
	}
}

// apply executes one effect and returns follow-up events for the machine.
func (s *PeerSession) apply(fx Effect) []Event {
	switch fx := fx.(type) {

	case FxCreateDataChannel:
		ordered := true
		dc, err := s.pc.CreateDataChannel(fx.Label, &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			slog.Warn("create data channel failed", "peer", s.remoteID, "err", err)
			s.setFailure("create data channel")
			return []Event{EvNegotiationError{}}
		}
		s.bindDataChannel(dc)

	case FxSendOffer:
		offer, err := s.pc.CreateOffer(nil)
		if err == nil {
			err = s.pc.SetLocalDescription(offer)
		}
		if err != nil {
			slog.Warn("offer failed", "peer", s.remoteID, "err", err)
			s.setFailure("send offer")
			return []Event{EvNegotiationError{}}
		}
		desc := protocol.DescriptionFromPion(*s.pc.LocalDescription())
		s.coord.sendSignal(&protocol.Message{
			Type:     protocol.TypeOffer,
			TargetID: s.remoteID,
			Offer:    &desc,
		})

	case FxAcceptOffer:
		remote, err := fx.Offer.ToPion()
		if err == nil {
			err = s.pc.SetRemoteDescription(remote)
		}
		var answer webrtc.SessionDescription
		if err == nil {
			answer, err = s.pc.CreateAnswer(nil)
		}
		if err == nil {
			err = s.pc.SetLocalDescription(answer)
		}
		if err != nil {
			slog.Warn("answer failed", "peer", s.remoteID, "err", err)
			s.setFailure("accept offer")
			return []Event{EvNegotiationError{}}
		}
		desc := protocol.DescriptionFromPion(*s.pc.LocalDescription())
		s.coord.sendSignal(&protocol.Message{
			Type:     protocol.TypeAnswer,
			TargetID: s.remoteID,
			Answer:   &desc,
		})
		return []Event{EvLocalAnswerSent{}}

	case FxAcceptAnswer:
		remote, err := fx.Answer.ToPion()
		if err == nil {
			err = s.pc.SetRemoteDescription(remote)
		}
		if err != nil {
			slog.Warn("apply answer failed", "peer", s.remoteID, "err", err)
			s.setFailure("accept answer")
			return []Event{EvNegotiationError{}}
		}

	case FxApplyCandidates:
		for _, c := range fx.Candidates {
			if err := s.pc.AddICECandidate(c.ToPion()); err != nil {
				// The transport tolerates individual bad candidates;
				// connectivity either succeeds on others or fails ICE.
				slog.Debug("add candidate failed", "peer", s.remoteID, "err", err)
			}
		}

	case FxResetTransport:
		s.pc.Close()
		s.dc = nil
		s.senders = make(map[media.Kind]*webrtc.RTPSender)
		s.remoteTracks = nil

		pc, err := s.coord.newPeerConnection(s)
		if err != nil {
			slog.Warn("transport reset failed", "peer", s.remoteID, "err", err)
			s.setFailure("reset transport")
			return []Event{EvNegotiationError{}}
		}
		s.pc = pc
		for _, h := range s.handles {
			if err := s.attachTrack(h); err != nil {
				slog.Warn("re-attach track failed", "peer", s.remoteID, "err", err)
				s.setFailure("reset transport")
				return []Event{EvNegotiationError{}}
			}
		}

	case FxClose:
		s.closeTransport()

	case FxStateChanged:
		var cause error
		if fx.State == StateFailed {
			cause = s.failure
		}
		s.coord.emitState(s.remoteID, fx.State, cause)
	}

	return nil
}

// upsertTrack attaches a local capture. An existing sender of the same
// kind gets its track replaced in place: no renegotiation, no second
// outbound slot, no second session.
func (s *PeerSession) upsertTrack(h media.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.machine.State()
	if state.Terminal() {
		return newError("add track", s.remoteID, ErrSessionClosed)
	}

	if sender, ok := s.senders[h.Kind()]; ok {
		if err := sender.ReplaceTrack(h.Track()); err != nil {
			return newError("replace track", s.remoteID, err)
		}
		s.handles[h.Kind()] = h
		return nil
	}

	switch state {
	case StateNew:
		// Pre-handshake; the first offer will carry the track.
		return s.attachTrack(h)
	case StateConnected:
		if err := s.attachTrack(h); err != nil {
			return err
		}
		s.dispatchLocked(EvTrackAdded{})
		return nil
	default:
		return newError("add track", s.remoteID, ErrRenegotiationInFlight)
	}
}

func (s *PeerSession) attachTrack(h media.Handle) error {
	sender, err := s.pc.AddTrack(h.Track())
	if err != nil {
		return newError("add track", s.remoteID, err)
	}
	s.senders[h.Kind()] = sender
	s.handles[h.Kind()] = h
	return nil
}

// setAudioMuted stops or resumes the outbound audio without touching the
// negotiated sender slot. Muting swaps the track out for nil; unmuting
// swaps the attached capture back in.
func (s *PeerSession) setAudioMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.senders[media.KindAudio]
	if !ok {
		return
	}
	var track webrtc.TrackLocal
	if !muted {
		if h, ok := s.handles[media.KindAudio]; ok {
			track = h.Track()
		}
	}
	if err := sender.ReplaceTrack(track); err != nil {
		slog.Debug("toggle audio failed", "peer", s.remoteID, "err", err)
	}
}

func (s *PeerSession) bindDataChannel(dc *webrtc.DataChannel) {
	s.dc = dc
	dc.OnOpen(func() {
		slog.Debug("data channel open", "peer", s.remoteID)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		frame, err := chat.Decode(msg.Data)
		if err != nil {
			slog.Debug("dropping bad frame", "peer", s.remoteID, "err", err)
			return
		}
		s.coord.emitChat(s.remoteID, frame)
	})
}

// adoptDataChannel binds the channel the remote (the initiator) created.
func (s *PeerSession) adoptDataChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindDataChannel(dc)
}

func (s *PeerSession) addRemoteTrack(track *webrtc.TrackRemote) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.remoteTracks = append(s.remoteTracks, track)
	s.mu.Unlock()

	if s.coord.renderer != nil {
		if err := s.coord.renderer.RenderRemoteTrack(track); err != nil {
			slog.Warn("render remote track failed", "peer", s.remoteID, "err", err)
		}
	}
}

// sendFrame writes to the data channel if it is open.
func (s *PeerSession) sendFrame(f chat.Frame) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	return chat.Send(dc, f)
}

func (s *PeerSession) closeTransport() {
	if s.closed {
		return
	}
	s.closed = true
	s.remoteTracks = nil
	if s.dc != nil {
		s.dc.Close()
	}
	if s.pc != nil {
		s.pc.Close()
	}
}
