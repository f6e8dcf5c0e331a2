package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Kind identifies a capture category.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var (
	ErrPermissionDenied = errors.New("media permission denied")
	ErrDeviceNotFound   = errors.New("media device not found")
)

// Handle is an acquired local capture: a sendable track plus its release
// hook. Closing a handle stops the underlying device or generator.
type Handle interface {
	Kind() Kind
	Track() webrtc.TrackLocal
	Close() error
}

// Source provides local capture capabilities. Implementations talk to the
// actual devices (or generate frames); the session coordinator treats all
// calls as opaque and fallible.
type Source interface {
	// AcquireMedia opens the default device of the given kind.
	AcquireMedia(ctx context.Context, kind Kind) (Handle, error)

	// AcquireDisplay opens a display capture. The returned handle always
	// has KindVideo.
	AcquireDisplay(ctx context.Context) (Handle, error)

	// AcquireGenerated wraps an application-drawn frame source (canvas
	// rendering, test patterns) as a video handle.
	AcquireGenerated(ctx context.Context, frames FrameSource) (Handle, error)
}

// Renderer consumes remote tracks on behalf of the presentation layer.
type Renderer interface {
	RenderRemoteTrack(track *webrtc.TrackRemote) error
}

// FrameSource produces encoded video frames for generated sources.
type FrameSource interface {
	Label() string
	// ReadFrame blocks until the next encoded frame is available.
	ReadFrame() (data []byte, durationMs int, err error)
}

// Actionable turns a capture error into a message the user can act on,
// instead of a raw platform error string.
func Actionable(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Capture permission was denied. Grant camera/microphone access in your system settings and try again."
	case errors.Is(err, ErrDeviceNotFound):
		return "No capture device was found. Plug in a camera or microphone, or continue with data-channel only."
	default:
		return fmt.Sprintf("Media capture failed: %v", err)
	}
}
