package config

import "testing"

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("PEERLINE_SERVER", "ws://env.example:9000/ws")
	t.Setenv("STUN_SERVER", "")
	t.Setenv("TURN_SERVER", "")
	t.Setenv("TURN_USERNAME", "")
	t.Setenv("TURN_PASSWORD", "")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "ws://env.example:9000/ws" {
		t.Fatalf("ServerURL = %q, want env value", cfg.ServerURL)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Fatalf("STUNServer = %q, want default", cfg.STUNServer)
	}

	cfg, err = Load(Options{ServerURL: "ws://flag.example/ws"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "ws://flag.example/ws" {
		t.Fatalf("ServerURL = %q, want flag value", cfg.ServerURL)
	}
}

func TestLoadRejectsTURNWithoutCredentials(t *testing.T) {
	t.Setenv("TURN_SERVER", "")
	t.Setenv("TURN_USERNAME", "")

	if _, err := Load(Options{TURNServer: "turn:relay.example"}); err == nil {
		t.Fatal("Load accepted TURN server without credentials")
	}
}

func TestICEServersIncludeTURNWhenConfigured(t *testing.T) {
	cfg := &Config{STUNServer: DefaultSTUN, TURNServer: "turn:relay.example", TURNUser: "u", TURNPass: "p"}
	servers := cfg.ICEServers()
	if len(servers) != 2 {
		t.Fatalf("len(servers) = %d, want 2", len(servers))
	}
	if servers[1].Username != "u" {
		t.Fatalf("turn username = %q, want u", servers[1].Username)
	}
}
