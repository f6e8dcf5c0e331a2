package session

import (
	"reflect"
	"testing"

	"github.com/kuldeep921997/peerline/internal/protocol"
)

func offer(sdp string) protocol.SessionDescription {
	return protocol.SessionDescription{Type: "offer", SDP: sdp}
}

func answer(sdp string) protocol.SessionDescription {
	return protocol.SessionDescription{Type: "answer", SDP: sdp}
}

func cand(s string) protocol.ICECandidate {
	return protocol.ICECandidate{Candidate: s}
}

func effectTypes(fx []Effect) []string {
	out := make([]string, 0, len(fx))
	for _, f := range fx {
		out = append(out, reflect.TypeOf(f).Name())
	}
	return out
}

func wantEffects(t *testing.T, fx []Effect, want ...string) {
	t.Helper()
	got := effectTypes(fx)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("effects = %v, want %v", got, want)
	}
}

func TestOffererHandshake(t *testing.T) {
	m := NewMachine("p1", "p2")

	fx := m.Step(EvInitiate{})
	wantEffects(t, fx, "FxCreateDataChannel", "FxSendOffer", "FxStateChanged")
	if m.State() != StateNegotiating || m.Role() != RoleOfferer {
		t.Fatalf("state=%s role=%d after initiate", m.State(), m.Role())
	}

	fx = m.Step(EvRemoteAnswer{Answer: answer("a")})
	wantEffects(t, fx, "FxAcceptAnswer", "FxStateChanged")
	if m.State() != StateConnecting {
		t.Fatalf("state = %s, want connecting", m.State())
	}

	fx = m.Step(EvICEConnected{})
	wantEffects(t, fx, "FxStateChanged")
	if m.State() != StateConnected {
		t.Fatalf("state = %s, want connected", m.State())
	}
}

func TestAnswererHandshake(t *testing.T) {
	m := NewMachine("p2", "p1")

	fx := m.Step(EvRemoteOffer{Offer: offer("o")})
	wantEffects(t, fx, "FxAcceptOffer", "FxStateChanged")
	if m.Role() != RoleAnswerer {
		t.Fatalf("role = %d, want answerer", m.Role())
	}

	fx = m.Step(EvLocalAnswerSent{})
	wantEffects(t, fx, "FxStateChanged")
	if m.State() != StateConnecting {
		t.Fatalf("state = %s, want connecting", m.State())
	}

	m.Step(EvICEConnected{})
	if m.State() != StateConnected {
		t.Fatalf("state = %s, want connected", m.State())
	}
}

func TestCandidatesQueueUntilRemoteDescriptionFIFO(t *testing.T) {
	m := NewMachine("p1", "p2")
	m.Step(EvInitiate{})

	// Candidates before the answer must queue, not apply.
	for _, c := range []string{"c1", "c2", "c3"} {
		if fx := m.Step(EvRemoteCandidate{Candidate: cand(c)}); len(fx) != 0 {
			t.Fatalf("candidate %s applied before remote description: %v", c, effectTypes(fx))
		}
	}

	fx := m.Step(EvRemoteAnswer{Answer: answer("a")})
	wantEffects(t, fx, "FxAcceptAnswer", "FxApplyCandidates", "FxStateChanged")

	apply := fx[1].(FxApplyCandidates)
	got := make([]string, 0, len(apply.Candidates))
	for _, c := range apply.Candidates {
		got = append(got, c.Candidate)
	}
	if !reflect.DeepEqual(got, []string{"c1", "c2", "c3"}) {
		t.Fatalf("flushed candidates = %v, want FIFO [c1 c2 c3]", got)
	}

	// After the description landed, candidates apply immediately.
	fx = m.Step(EvRemoteCandidate{Candidate: cand("c4")})
	wantEffects(t, fx, "FxApplyCandidates")
}

func TestOfferOnExistingSessionIsRenegotiation(t *testing.T) {
	m := connectedMachine(t, "p1", "p2")

	fx := m.Step(EvRemoteOffer{Offer: offer("o2")})
	wantEffects(t, fx, "FxAcceptOffer", "FxStateChanged")
	if m.State() != StateRenegotiating {
		t.Fatalf("state = %s, want renegotiating", m.State())
	}

	fx = m.Step(EvLocalAnswerSent{})
	wantEffects(t, fx, "FxStateChanged")
	if m.State() != StateConnected {
		t.Fatalf("state = %s, want connected after renegotiation", m.State())
	}
}

func TestTrackAddedTriggersRenegotiationOnlyWhenConnected(t *testing.T) {
	m := connectedMachine(t, "p1", "p2")

	fx := m.Step(EvTrackAdded{})
	wantEffects(t, fx, "FxSendOffer", "FxStateChanged")
	send := fx[0].(FxSendOffer)
	if !send.Renegotiation {
		t.Fatal("renegotiation offer not flagged")
	}
	if m.State() != StateRenegotiating {
		t.Fatalf("state = %s, want renegotiating", m.State())
	}

	// A second track add mid-renegotiation is absorbed; the coordinator
	// surfaces ErrRenegotiationInFlight before ever reaching the machine.
	if fx := m.Step(EvTrackAdded{}); len(fx) != 0 {
		t.Fatalf("concurrent renegotiation produced effects: %v", effectTypes(fx))
	}

	fx = m.Step(EvRemoteAnswer{Answer: answer("a2")})
	wantEffects(t, fx, "FxAcceptAnswer", "FxStateChanged")
	if m.State() != StateConnected {
		t.Fatalf("state = %s, want connected", m.State())
	}
}

func TestGlarePoliteSideYields(t *testing.T) {
	// p1 < p2, so p1 is polite and yields when both initiated.
	m := NewMachine("p1", "p2")
	m.Step(EvInitiate{})

	fx := m.Step(EvRemoteOffer{Offer: offer("theirs")})
	wantEffects(t, fx, "FxResetTransport", "FxAcceptOffer")
	if m.Role() != RoleAnswerer {
		t.Fatalf("role = %d, want answerer after yielding", m.Role())
	}
}

func TestGlareImpoliteSideIgnoresOffer(t *testing.T) {
	// p2 > p1, so p2 keeps its own offer on glare.
	m := NewMachine("p2", "p1")
	m.Step(EvInitiate{})

	if fx := m.Step(EvRemoteOffer{Offer: offer("theirs")}); len(fx) != 0 {
		t.Fatalf("impolite side produced effects: %v", effectTypes(fx))
	}
	if m.Role() != RoleOfferer || m.State() != StateNegotiating {
		t.Fatalf("impolite side changed course: state=%s role=%d", m.State(), m.Role())
	}
}

func TestRemoteLeftIsTerminal(t *testing.T) {
	m := connectedMachine(t, "p1", "p2")

	fx := m.Step(EvRemoteLeft{})
	wantEffects(t, fx, "FxClose", "FxStateChanged")
	if m.State() != StateClosed {
		t.Fatalf("state = %s, want closed", m.State())
	}

	// Terminal states absorb everything; no resurrection.
	for _, ev := range []Event{EvInitiate{}, EvRemoteOffer{Offer: offer("o")}, EvICEConnected{}, EvTrackAdded{}} {
		if fx := m.Step(ev); len(fx) != 0 {
			t.Fatalf("closed session produced effects for %T: %v", ev, effectTypes(fx))
		}
	}
}

func TestICEFailureIsTerminal(t *testing.T) {
	m := NewMachine("p1", "p2")
	m.Step(EvInitiate{})
	m.Step(EvRemoteAnswer{Answer: answer("a")})

	fx := m.Step(EvICEFailed{})
	wantEffects(t, fx, "FxClose", "FxStateChanged")
	if m.State() != StateFailed {
		t.Fatalf("state = %s, want failed", m.State())
	}

	if fx := m.Step(EvRemoteAnswer{Answer: answer("a2")}); len(fx) != 0 {
		t.Fatalf("failed session produced effects: %v", effectTypes(fx))
	}
}

func TestNegotiationErrorIsTerminal(t *testing.T) {
	m := NewMachine("p1", "p2")
	m.Step(EvInitiate{})

	fx := m.Step(EvNegotiationError{})
	wantEffects(t, fx, "FxClose", "FxStateChanged")
	if m.State() != StateFailed {
		t.Fatalf("state = %s, want failed", m.State())
	}
}

func TestDeterminism(t *testing.T) {
	run := func() []string {
		m := NewMachine("a", "b")
		var all []string
		events := []Event{
			EvInitiate{},
			EvRemoteCandidate{Candidate: cand("c1")},
			EvRemoteAnswer{Answer: answer("a")},
			EvICEConnected{},
			EvTrackAdded{},
			EvRemoteAnswer{Answer: answer("a2")},
			EvHangup{},
		}
		for _, ev := range events {
			all = append(all, effectTypes(m.Step(ev))...)
			all = append(all, m.State().String())
		}
		return all
	}

	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged: %v vs %v", i, got, first)
		}
	}
}

func connectedMachine(t *testing.T, local, remote string) *Machine {
	t.Helper()
	m := NewMachine(local, remote)
	m.Step(EvInitiate{})
	m.Step(EvRemoteAnswer{Answer: answer("a")})
	m.Step(EvICEConnected{})
	if m.State() != StateConnected {
		t.Fatalf("setup: state = %s, want connected", m.State())
	}
	return m
}
