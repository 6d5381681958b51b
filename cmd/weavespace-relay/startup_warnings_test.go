package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/hacker-ring/weavespace-relay/internal/config"
)

func captureWarnings(cfg config.Config) string {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logStartupSecurityWarnings(logger, cfg)
	return buf.String()
}

func TestWarnsOnWildcardOrigins(t *testing.T) {
	out := captureWarnings(config.Config{
		Mode:                 config.ModeDev,
		AllowedOrigins:       []string{"*"},
		MaxMessagesPerSecond: 120,
	})
	if !strings.Contains(out, "allowed_origins_wildcard") {
		t.Errorf("missing wildcard warning:\n%s", out)
	}
	// The message names the real env var so operators can act on it.
	if !strings.Contains(out, "ALLOWED_ORIGINS") || strings.Contains(out, "WEAVESPACE_ALLOWED_ORIGINS") {
		t.Errorf("wildcard warning names the wrong env var:\n%s", out)
	}
}

func TestWarnsOnMissingAllowlistInProd(t *testing.T) {
	out := captureWarnings(config.Config{
		Mode:                 config.ModeProd,
		MaxMessagesPerSecond: 120,
	})
	if !strings.Contains(out, "no_origin_allowlist_in_prod") {
		t.Errorf("missing allowlist warning:\n%s", out)
	}

	out = captureWarnings(config.Config{
		Mode:                 config.ModeDev,
		MaxMessagesPerSecond: 120,
	})
	if strings.Contains(out, "no_origin_allowlist_in_prod") {
		t.Errorf("allowlist warning fired in dev:\n%s", out)
	}
}

func TestWarnsOnStaticTURNCredentialsInProd(t *testing.T) {
	cfg := config.Config{
		Mode:                 config.ModeProd,
		AllowedOrigins:       []string{"https://app.example.com"},
		MaxMessagesPerSecond: 120,
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"turn:turn.example.com:3478"}, Username: "static", Credential: "secret"},
		},
	}
	out := captureWarnings(cfg)
	if !strings.Contains(out, "static_turn_credentials_in_prod") {
		t.Errorf("missing static TURN warning:\n%s", out)
	}

	// TURN REST configured: ephemeral credentials are the served ones.
	cfg.TURNREST = config.TurnRESTConfig{SharedSecret: "s3cret", TTLSeconds: 600, UsernamePrefix: "weavespace"}
	out = captureWarnings(cfg)
	if strings.Contains(out, "static_turn_credentials_in_prod") {
		t.Errorf("static TURN warning fired with TURN REST enabled:\n%s", out)
	}
}

func TestWarnsOnDisabledRateLimit(t *testing.T) {
	out := captureWarnings(config.Config{Mode: config.ModeDev})
	if !strings.Contains(out, "rate_limit_disabled") {
		t.Errorf("missing rate limit warning:\n%s", out)
	}
	if !strings.Contains(out, "MAX_MESSAGES_PER_SECOND") || strings.Contains(out, "WEAVESPACE_MAX_MESSAGES_PER_SECOND") {
		t.Errorf("rate limit warning names the wrong env var:\n%s", out)
	}
}
