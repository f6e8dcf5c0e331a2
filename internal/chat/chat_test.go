package chat

import "testing"

func TestEncodeDecode(t *testing.T) {
	f := NewText("p1", "hello there")
	data, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind != KindText || got.From != "p1" || got.Body != "hello there" {
		t.Fatalf("Decode = %+v, want original frame", got)
	}
	if got.SentAt == 0 {
		t.Fatal("SentAt not stamped")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	data, err := Encode(Frame{Kind: "shrug", From: "p1"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(data); err == nil {
		t.Fatal("Decode accepted unknown kind")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Fatal("Decode accepted garbage")
	}
}

func TestSendRequiresOpenChannel(t *testing.T) {
	if err := Send(nil, NewBye("p1")); err != ErrChannelNotOpen {
		t.Fatalf("Send(nil) = %v, want %v", err, ErrChannelNotOpen)
	}
}
