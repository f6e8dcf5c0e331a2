package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	mid := "0"
	cases := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{"create ok", Message{Type: TypeCreateRoom, RoomID: "r1"}, ""},
		{"create missing room", Message{Type: TypeCreateRoom}, "missing roomId"},
		{"join ok", Message{Type: TypeJoinRoom, RoomID: "r1"}, ""},
		{"query missing room", Message{Type: TypeGetRoomInfo}, "missing roomId"},
		{
			"offer ok",
			Message{Type: TypeOffer, TargetID: "p2", Offer: &SessionDescription{Type: "offer", SDP: "v=0"}},
			"",
		},
		{
			"offer without target",
			Message{Type: TypeOffer, Offer: &SessionDescription{Type: "offer", SDP: "v=0"}},
			"missing targetId",
		},
		{
			"offer wrong sdp type",
			Message{Type: TypeOffer, TargetID: "p2", Offer: &SessionDescription{Type: "answer", SDP: "v=0"}},
			`sdp type "answer"`,
		},
		{
			"answer ok",
			Message{Type: TypeAnswer, TargetID: "p1", Answer: &SessionDescription{Type: "answer", SDP: "v=0"}},
			"",
		},
		{
			"answer missing payload",
			Message{Type: TypeAnswer, TargetID: "p1"},
			"missing answer",
		},
		{
			"candidate ok",
			Message{Type: TypeICECandidate, TargetID: "p1", Candidate: &ICECandidate{Candidate: "candidate:1", SDPMid: &mid}},
			"",
		},
		{
			"candidate missing payload",
			Message{Type: TypeICECandidate, TargetID: "p1"},
			"missing candidate",
		},
		{"server-only type rejected", Message{Type: TypeUserJoined, UserID: "p1"}, "unsupported message type"},
		{"unknown type", Message{Type: "bogus"}, "unsupported message type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestDescriptionToPionRejectsUnknownType(t *testing.T) {
	_, err := SessionDescription{Type: "pranswer", SDP: "v=0"}.ToPion()
	if err == nil {
		t.Fatal("ToPion() accepted unsupported sdp type")
	}
}

func TestSuccessFieldSerialization(t *testing.T) {
	// A failed response must carry an explicit success:false, while relay
	// frames must not mention success at all.
	failed := Message{Type: TypeRoomCreated, Success: Bool(false), Reason: "room already exists"}
	data, err := json.Marshal(&failed)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"success":false`) {
		t.Fatalf("failed response JSON %s missing success:false", data)
	}

	relay := Message{Type: TypeICECandidate, TargetID: "p2", Candidate: &ICECandidate{Candidate: "candidate:1"}}
	data, err = json.Marshal(&relay)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "success") {
		t.Fatalf("relay JSON %s must not carry success", data)
	}
}
