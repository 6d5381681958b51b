package httpserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/hacker-ring/weavespace-relay/internal/config"
	"github.com/hacker-ring/weavespace-relay/internal/hub"
	"github.com/hacker-ring/weavespace-relay/internal/presence"
)

type fakeRelay struct {
	status hub.Status
	chat   hub.ChatRoomsStatus
}

func (f *fakeRelay) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
}

func (f *fakeRelay) Status() hub.Status             { return f.status }
func (f *fakeRelay) ChatRooms() hub.ChatRoomsStatus { return f.chat }

func newTestServer(t *testing.T, cfg config.Config, relay *fakeRelay) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger, BuildInfo{Commit: "abc123", BuildTime: "2026-08-30"}, relay)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, body
}

func TestRootServiceBanner(t *testing.T) {
	_, ts := newTestServer(t, config.Config{}, &fakeRelay{})
	code, body := getJSON(t, ts.URL+"/")
	if code != http.StatusOK || body["service"] != "weavespace-relay" {
		t.Fatalf("code=%d body=%v", code, body)
	}
	if _, ok := body["features"]; !ok {
		t.Error("features missing")
	}
}

func TestHealthzReportsHubStatus(t *testing.T) {
	relay := &fakeRelay{
		status: hub.Status{
			ConnectedUsers: 3,
			VoiceRooms:     []hub.VoiceRoomStatus{{Room: "standup", Users: []presence.ConnID{"a", "b"}}},
		},
	}
	_, ts := newTestServer(t, config.Config{}, relay)

	code, body := getJSON(t, ts.URL+"/healthz")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" || body["connectedUsers"] != float64(3) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["voiceRooms"]; !ok {
		t.Error("voiceRooms missing")
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestReadyzFlipsWithServeState(t *testing.T) {
	s, ts := newTestServer(t, config.Config{}, &fakeRelay{})

	code, body := getJSON(t, ts.URL+"/readyz")
	if code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("before serve: code=%d body=%v", code, body)
	}

	s.ready.Store(true)
	code, body = getJSON(t, ts.URL+"/readyz")
	if code != http.StatusOK || body["ready"] != true {
		t.Fatalf("after serve: code=%d body=%v", code, body)
	}
}

func TestVersionReturnsBuildInfo(t *testing.T) {
	_, ts := newTestServer(t, config.Config{}, &fakeRelay{})
	code, body := getJSON(t, ts.URL+"/version")
	if code != http.StatusOK || body["commit"] != "abc123" {
		t.Fatalf("code=%d body=%v", code, body)
	}
}

func TestChatRoomsSummary(t *testing.T) {
	relay := &fakeRelay{
		chat: hub.ChatRoomsStatus{
			ChatRooms: map[string][]hub.ChatMember{
				"chat-general": {{ID: "c1", Username: "ada"}},
			},
			TotalConnectedUsers: 1,
		},
	}
	_, ts := newTestServer(t, config.Config{}, relay)

	code, body := getJSON(t, ts.URL+"/api/chat/rooms")
	if code != http.StatusOK || body["totalConnectedUsers"] != float64(1) {
		t.Fatalf("code=%d body=%v", code, body)
	}
	rooms, ok := body["chatRooms"].(map[string]any)
	if !ok || len(rooms) != 1 {
		t.Fatalf("chatRooms = %v", body["chatRooms"])
	}
}

func TestICEConfigWithoutTURNREST(t *testing.T) {
	cfg := config.Config{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.example.com:3478"}}},
	}
	_, ts := newTestServer(t, cfg, &fakeRelay{})

	code, body := getJSON(t, ts.URL+"/webrtc/ice")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	servers, ok := body["iceServers"].([]any)
	if !ok || len(servers) != 1 {
		t.Fatalf("iceServers = %v", body["iceServers"])
	}
	if _, ok := body["ttl"]; ok {
		t.Error("ttl present without TURN REST")
	}
}

func TestICEConfigInjectsEphemeralTURNCredentials(t *testing.T) {
	cfg := config.Config{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
			{URLs: []string{"turn:turn.example.com:3478"}},
		},
		TURNREST: config.TurnRESTConfig{
			SharedSecret:   "s3cret",
			TTLSeconds:     600,
			UsernamePrefix: "weavespace",
		},
	}
	_, ts := newTestServer(t, cfg, &fakeRelay{})

	code, body := getJSON(t, ts.URL+"/webrtc/ice?connId=conn-1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["ttl"] != float64(600) {
		t.Errorf("ttl = %v", body["ttl"])
	}
	servers := body["iceServers"].([]any)
	stun := servers[0].(map[string]any)
	turn := servers[1].(map[string]any)
	if stun["username"] != nil && stun["username"] != "" {
		t.Errorf("stun entry got credentials: %v", stun)
	}
	username, _ := turn["username"].(string)
	if !strings.Contains(username, ":weavespace:conn-1") {
		t.Errorf("turn username = %q", username)
	}
	if cred, _ := turn["credential"].(string); cred == "" {
		t.Errorf("turn credential missing: %v", turn)
	}
}

func TestOriginPolicyRejectsUnlistedOrigin(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"https://app.example.com"}}
	_, ts := newTestServer(t, cfg, &fakeRelay{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/version", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	req.Header.Set("Origin", "https://app.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestOriginPolicyAllowsAnyOriginInDevWithoutAllowlist(t *testing.T) {
	cfg := config.Config{Mode: config.ModeDev}
	_, ts := newTestServer(t, cfg, &fakeRelay{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/version", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"*"}}
	_, ts := newTestServer(t, cfg, &fakeRelay{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat/rooms", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("Allow-Methods missing on preflight")
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	_, ts := newTestServer(t, config.Config{}, &fakeRelay{})
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "weavespace_") {
		t.Error("relay collectors missing from /metrics output")
	}
}
