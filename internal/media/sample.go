package media

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// sampleHandle wraps a TrackLocalStaticSample together with the goroutine
// feeding it, if any.
type sampleHandle struct {
	kind  Kind
	track *webrtc.TrackLocalStaticSample

	stopOnce sync.Once
	stop     chan struct{}
}

func (h *sampleHandle) Kind() Kind               { return h.kind }
func (h *sampleHandle) Track() webrtc.TrackLocal { return h.track }

func (h *sampleHandle) Close() error {
	h.stopOnce.Do(func() { close(h.stop) })
	return nil
}

// SampleSource is a headless Source implementation producing silent audio
// and blank video tracks. It backs the CLI client (which has no devices)
// and the coordinator tests.
type SampleSource struct{}

func NewSampleSource() *SampleSource { return &SampleSource{} }

func (s *SampleSource) AcquireMedia(ctx context.Context, kind Kind) (Handle, error) {
	switch kind {
	case KindAudio:
		return s.newHandle(kind, webrtc.MimeTypeOpus, "audio")
	case KindVideo:
		return s.newHandle(kind, webrtc.MimeTypeVP8, "video")
	default:
		return nil, ErrDeviceNotFound
	}
}

func (s *SampleSource) AcquireDisplay(ctx context.Context) (Handle, error) {
	return s.newHandle(KindVideo, webrtc.MimeTypeVP8, "display")
}

func (s *SampleSource) AcquireGenerated(ctx context.Context, frames FrameSource) (Handle, error) {
	h, err := s.newHandle(KindVideo, webrtc.MimeTypeVP8, frames.Label())
	if err != nil {
		return nil, err
	}

	sh := h.(*sampleHandle)
	go func() {
		for {
			select {
			case <-sh.stop:
				return
			default:
			}
			data, durationMs, err := frames.ReadFrame()
			if err != nil {
				return
			}
			sample := pionmedia.Sample{Data: data, Duration: time.Duration(durationMs) * time.Millisecond}
			if err := sh.track.WriteSample(sample); err != nil {
				return
			}
		}
	}()

	return h, nil
}

func (s *SampleSource) newHandle(kind Kind, mimeType, label string) (Handle, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		label,
		"peerline",
	)
	if err != nil {
		return nil, err
	}
	return &sampleHandle{kind: kind, track: track, stop: make(chan struct{})}, nil
}
