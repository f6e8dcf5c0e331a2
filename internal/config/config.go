package config

import (
	"fmt"
	"os"

	"github.com/pion/webrtc/v4"
)

// Default configuration values.
const (
	DefaultServerURL = "ws://localhost:8080/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Config holds client configuration.
type Config struct {
	// ServerURL is the rendezvous service websocket endpoint.
	ServerURL string

	// ICE servers for the underlying transport.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options)
// 2. Environment variables
// 3. Defaults
func Load(opts Options) (*Config, error) {
	serverURL := firstNonEmpty(opts.ServerURL, os.Getenv("PEERLINE_SERVER"), DefaultServerURL)
	stun := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turn := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"))
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"))
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"))

	if turn != "" && turnUser == "" {
		return nil, fmt.Errorf("TURN server %q configured without credentials", turn)
	}

	return &Config{
		ServerURL:  serverURL,
		STUNServer: stun,
		TURNServer: turn,
		TURNUser:   turnUser,
		TURNPass:   turnPass,
	}, nil
}

// ICEServers builds the transport configuration for a peer connection.
func (c *Config) ICEServers() []webrtc.ICEServer {
	servers := []webrtc.ICEServer{{URLs: []string{c.STUNServer}}}
	if c.TURNServer != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
				fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
			},
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
