package main

import (
	"log/slog"

	"github.com/hacker-ring/weavespace-relay/internal/config"
)

func logStartupSecurityWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if containsString(cfg.AllowedOrigins, "*") {
		logger.Warn("startup security warning: ALLOWED_ORIGINS contains '*' (allows any origin)",
			"warning_code", "allowed_origins_wildcard",
			"allowed_origins", cfg.AllowedOrigins,
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && len(cfg.AllowedOrigins) == 0 {
		logger.Warn("startup security warning: no origin allowlist while --mode=prod (same-host policy only)",
			"warning_code", "no_origin_allowlist_in_prod",
			"mode", cfg.Mode,
		)
	}

	if cfg.Mode == config.ModeProd && len(cfg.ICEServers) > 0 && !cfg.TURNREST.Enabled() {
		hasStatic := false
		for _, server := range cfg.ICEServers {
			if server.Username != "" {
				hasStatic = true
			}
		}
		if hasStatic {
			logger.Warn("startup security warning: static TURN credentials configured while --mode=prod (prefer TURN REST ephemeral credentials)",
				"warning_code", "static_turn_credentials_in_prod",
				"mode", cfg.Mode,
			)
		}
	}

	if cfg.MaxMessagesPerSecond <= 0 {
		logger.Warn("startup security warning: MAX_MESSAGES_PER_SECOND is 0 (no per-connection rate limit)",
			"warning_code", "rate_limit_disabled",
			"mode", cfg.Mode,
		)
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
