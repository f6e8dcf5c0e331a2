package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ChannelLabel is the label of the single data channel per session.
const ChannelLabel = "chat"

var ErrChannelNotOpen = errors.New("data channel not open")

// Kind tags every frame on the data channel.
type Kind string

const (
	// KindText is a user chat line.
	KindText Kind = "chat"

	// KindMute announces that the sender toggled its audio.
	KindMute Kind = "mute"

	// KindBye announces an orderly hangup before the transport closes.
	KindBye Kind = "bye"
)

// Frame is the msgpack-encoded unit exchanged over the data channel.
type Frame struct {
	Kind   Kind   `msgpack:"kind"`
	From   string `msgpack:"from"`
	Body   string `msgpack:"body,omitempty"`
	Muted  bool   `msgpack:"muted,omitempty"`
	SentAt int64  `msgpack:"sentAt"`
}

// NewText builds a chat frame stamped with the current time.
func NewText(from, body string) Frame {
	return Frame{Kind: KindText, From: from, Body: body, SentAt: time.Now().UnixMilli()}
}

// NewMute builds a mute announcement.
func NewMute(from string, muted bool) Frame {
	return Frame{Kind: KindMute, From: from, Muted: muted, SentAt: time.Now().UnixMilli()}
}

// NewBye builds a hangup announcement.
func NewBye(from string) Frame {
	return Frame{Kind: KindBye, From: from, SentAt: time.Now().UnixMilli()}
}

// Encode serializes a frame.
func Encode(f Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	return data, nil
}

// Decode parses and validates a frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("parse frame: %w", err)
	}
	switch f.Kind {
	case KindText, KindMute, KindBye:
	default:
		return Frame{}, fmt.Errorf("unknown frame kind %q", f.Kind)
	}
	return f, nil
}

// Send encodes and writes a frame to an open data channel.
func Send(dc *webrtc.DataChannel, f Frame) error {
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	data, err := Encode(f)
	if err != nil {
		return err
	}
	return dc.Send(data)
}
