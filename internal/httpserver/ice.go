package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/hacker-ring/weavespace-relay/internal/config"
	"github.com/hacker-ring/weavespace-relay/internal/turnrest"
)

// turnCredentialSource mints per-request ephemeral TURN credentials when
// TURN REST is configured.
type turnCredentialSource struct {
	gen *turnrest.Generator
}

func newTurnCredentialSource(cfg config.TurnRESTConfig) (*turnCredentialSource, error) {
	gen, err := turnrest.NewGenerator(cfg.SharedSecret, cfg.UsernamePrefix, cfg.TTLSeconds)
	if err != nil {
		return nil, err
	}
	return &turnCredentialSource{gen: gen}, nil
}

// handleICEConfig serves the ICE server list voice clients feed into their
// RTCPeerConnection. With TURN REST enabled, TURN entries get short-lived
// credentials derived per request; static credentials pass through as-is.
func (s *Server) handleICEConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.ICEConfigError(); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}

	servers := s.cfg.ICEServers
	ttl := int64(0)
	if s.turn != nil {
		connID := r.URL.Query().Get("connId")
		if connID == "" || strings.Contains(connID, ":") {
			connID = uuid.NewString()
		}
		creds, err := s.turn.gen.Generate(connID)
		if err != nil {
			s.log.Error("generate turn credentials", "error", err)
			WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "credential generation failed"})
			return
		}
		servers = withTURNCredentials(servers, creds.Username, creds.Credential)
		ttl = s.cfg.TURNREST.TTLSeconds
	}

	resp := map[string]any{"iceServers": servers}
	if ttl > 0 {
		resp["ttl"] = ttl
	}
	WriteJSON(w, http.StatusOK, resp)
}

// withTURNCredentials copies the server list, substituting the ephemeral
// login on every TURN/TURNS entry. STUN entries are left alone.
func withTURNCredentials(servers []webrtc.ICEServer, username, credential string) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, len(servers))
	for i, server := range servers {
		out[i] = server
		if hasTURNURL(server) {
			out[i].Username = username
			out[i].Credential = credential
		}
	}
	return out
}

func hasTURNURL(server webrtc.ICEServer) bool {
	for _, raw := range server.URLs {
		u := strings.ToLower(strings.TrimSpace(raw))
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			return true
		}
	}
	return false
}
