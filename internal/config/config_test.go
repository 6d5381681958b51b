package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func lookupFromMap(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(lookupFromMap(nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode = %q, want dev", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat = %q, want text (dev default)", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug (dev default)", cfg.LogLevel)
	}
	if cfg.WorkspaceID != DefaultWorkspaceID {
		t.Errorf("WorkspaceID = %q, want %q", cfg.WorkspaceID, DefaultWorkspaceID)
	}
	if cfg.MaxMessageBytes != DefaultMaxMessageBytes {
		t.Errorf("MaxMessageBytes = %d, want %d", cfg.MaxMessageBytes, DefaultMaxMessageBytes)
	}
	if cfg.SendQueueLen != DefaultSendQueueLen {
		t.Errorf("SendQueueLen = %d, want %d", cfg.SendQueueLen, DefaultSendQueueLen)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want empty (allow all)", cfg.AllowedOrigins)
	}
	if cfg.TURNREST.Enabled() {
		t.Errorf("TURNREST enabled without a shared secret")
	}
}

func TestLoadProdDefaultsToJSONLogs(t *testing.T) {
	env := map[string]string{"WEAVESPACE_MODE": "prod"}
	cfg, err := load(lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat = %q, want json (prod default)", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info (prod default)", cfg.LogLevel)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	env := map[string]string{
		"WEAVESPACE_LISTEN_ADDR": "127.0.0.1:9999",
		"ALLOWED_ORIGINS":        "https://a.example",
	}
	cfg, err := load(lookupFromMap(env), []string{
		"--listen-addr", "127.0.0.1:4000",
		"--allowed-origins", "https://b.example, https://c.example",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:4000" {
		t.Errorf("ListenAddr = %q, want flag value", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://b.example" || cfg.AllowedOrigins[1] != "https://c.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad mode", args: []string{"--mode", "staging"}},
		{name: "bad log level", args: []string{"--log-level", "verbose"}},
		{name: "zero message bytes", args: []string{"--max-message-bytes", "0"}},
		{name: "negative message rate", args: []string{"--max-messages-per-second", "-1"}},
		{name: "ping >= idle", args: []string{"--ws-ping-interval", "90s"}},
		{name: "empty workspace", args: []string{"--workspace-id", "  "}},
		{name: "bad idle timeout", env: map[string]string{"WS_IDLE_TIMEOUT": "soon"}},
		{name: "turn rest bad ttl", env: map[string]string{
			"TURN_REST_SHARED_SECRET": "s3cret",
			"TURN_REST_TTL_SECONDS":   "-5",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := load(lookupFromMap(tc.env), tc.args); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadZeroMessageRateDisablesLimit(t *testing.T) {
	env := map[string]string{"MAX_MESSAGES_PER_SECOND": "0"}
	cfg, err := load(lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxMessagesPerSecond != 0 {
		t.Errorf("MaxMessagesPerSecond = %d, want 0 (disabled)", cfg.MaxMessagesPerSecond)
	}
}

func TestLoadWSKeepaliveValues(t *testing.T) {
	env := map[string]string{
		"WS_IDLE_TIMEOUT":  "2m",
		"WS_PING_INTERVAL": "30s",
	}
	cfg, err := load(lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WSIdleTimeout != 2*time.Minute {
		t.Errorf("WSIdleTimeout = %v", cfg.WSIdleTimeout)
	}
	if cfg.WSPingInterval != 30*time.Second {
		t.Errorf("WSPingInterval = %v", cfg.WSPingInterval)
	}
}

func TestLoadICEConfigErrorIsDeferred(t *testing.T) {
	// A broken ICE config must not fail startup; it surfaces via
	// ICEConfigError so /readyz and /webrtc/ice can report it.
	env := map[string]string{"WEAVESPACE_ICE_SERVERS_JSON": "{not json"}
	cfg, err := load(lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ICEConfigError() == nil {
		t.Fatalf("expected deferred ICE config error")
	}
}

func TestLoadTURNRESTConfig(t *testing.T) {
	env := map[string]string{
		"TURN_REST_SHARED_SECRET": "s3cret",
		"WEAVESPACE_TURN_URLS":    "turn:turn.example:3478",
	}
	cfg, err := load(lookupFromMap(env), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.TURNREST.Enabled() {
		t.Fatalf("TURNREST should be enabled")
	}
	if cfg.TURNREST.UsernamePrefix != DefaultTURNRESTUsernamePrefix {
		t.Errorf("UsernamePrefix = %q", cfg.TURNREST.UsernamePrefix)
	}
	// TURN URLs without static credentials are valid when TURN REST is on.
	if err := cfg.ICEConfigError(); err != nil {
		t.Fatalf("ICEConfigError: %v", err)
	}
	if len(cfg.ICEServers) != 1 || !strings.HasPrefix(cfg.ICEServers[0].URLs[0], "turn:") {
		t.Errorf("ICEServers = %+v", cfg.ICEServers)
	}
}
