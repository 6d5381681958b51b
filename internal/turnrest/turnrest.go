// Package turnrest mints coturn-compatible ephemeral TURN credentials
// (draft-uberti-behave-turn-rest). Voice clients fetch them alongside the
// ICE server list so the shared TURN secret never reaches the browser.
//
// The scheme is fixed by coturn:
//
//	username   = <unix_expiry>:<prefix>:<connection_id>
//	credential = base64(hmac_sha1(shared_secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Generator struct {
	secret []byte
	ttl    time.Duration
	prefix string

	now func() time.Time // injectable for tests
}

func NewGenerator(secret, prefix string, ttlSeconds int64) (*Generator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("turnrest: shared secret is required")
	}
	if ttlSeconds <= 0 {
		return nil, errors.New("turnrest: ttl must be positive")
	}
	if prefix == "" || strings.Contains(prefix, ":") {
		return nil, fmt.Errorf("turnrest: invalid username prefix %q", prefix)
	}
	return &Generator{
		secret: []byte(secret),
		ttl:    time.Duration(ttlSeconds) * time.Second,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Credentials is one short-lived TURN login.
type Credentials struct {
	Username   string
	Credential string
	ExpiryUnix int64
}

// Generate derives credentials bound to a connection id. The id lands in
// the TURN username, which keeps coturn logs attributable per connection.
func (g *Generator) Generate(connID string) (Credentials, error) {
	if connID == "" || strings.Contains(connID, ":") {
		return Credentials{}, fmt.Errorf("turnrest: invalid connection id %q", connID)
	}
	expiry := g.now().UTC().Add(g.ttl).Unix()
	username := fmt.Sprintf("%d:%s:%s", expiry, g.prefix, connID)

	mac := hmac.New(sha1.New, g.secret)
	_, _ = mac.Write([]byte(username))

	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiryUnix: expiry,
	}, nil
}
