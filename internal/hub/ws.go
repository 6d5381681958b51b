package hub

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hacker-ring/weavespace-relay/internal/config"
	"github.com/hacker-ring/weavespace-relay/internal/origin"
)

// WebSocketHandler upgrades GET /ws?username=... and runs the connection
// until the peer goes away. The username is connect-time metadata and
// immutable for the connection's lifetime.
func (h *Hub) WebSocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: originChecker(h.cfg),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			h.log.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
			return
		}

		c := newClient(h, conn, r.URL.Query().Get("username"))
		h.Connect(c)

		go c.writePump()
		c.readPump()
	})
}

// originChecker applies the configured origin policy to the upgrade
// request. Non-browser clients without an Origin header pass.
func originChecker(cfg config.Config) func(*http.Request) bool {
	policy := cfg.OriginPolicy()
	return func(r *http.Request) bool {
		header := r.Header.Get("Origin")
		if header == "" {
			return true
		}
		norm, host, ok := origin.Normalize(header)
		return ok && policy.Allowed(norm, host, r.Host)
	}
}
