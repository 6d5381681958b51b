// Package origin validates browser Origin headers for the HTTP surface and
// the WebSocket upgrade.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Normalize validates an Origin header and returns it in canonical
// scheme://host[:port] form, plus the host[:port] part for same-host
// comparisons. Default ports are stripped. The sandboxed Origin value
// "null" is passed through.
func Normalize(header string) (normalized string, host string, ok bool) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", "", false
	}
	if trimmed == "null" {
		return "null", "", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}

	host, ok = canonicalHost(u.Host, scheme)
	if !ok {
		return "", "", false
	}
	return scheme + "://" + host, host, true
}

// Policy decides which browser origins may reach the server. A non-empty
// allowlist is authoritative: entries are "*" or normalized origins. With
// no allowlist, AllowAllWhenUnlisted selects between accepting every
// origin (dev mode, where the frontend runs on its own port) and a
// same-host fallback (prod without an explicit allowlist).
type Policy struct {
	Allowlist            []string
	AllowAllWhenUnlisted bool
}

// Allowed reports whether a normalized origin may reach the server. The
// same-host fallback compares without scheme because a TLS-terminating
// proxy may downgrade the request side.
func (p Policy) Allowed(normalized, originHost, requestHost string) bool {
	if len(p.Allowlist) > 0 {
		for _, entry := range p.Allowlist {
			if entry == "*" || strings.EqualFold(entry, normalized) {
				return true
			}
		}
		return false
	}
	if p.AllowAllWhenUnlisted {
		return true
	}

	scheme, _, found := strings.Cut(normalized, "://")
	if !found {
		return false // "null" never matches a host-based request
	}
	reqHost, ok := canonicalHost(strings.ToLower(strings.TrimSpace(requestHost)), scheme)
	if !ok {
		return false
	}
	return originHost == reqHost
}

// canonicalHost lowercases the hostname, validates the port and drops it
// when it is the scheme default.
func canonicalHost(hostport, scheme string) (string, bool) {
	hostname := hostport
	rawPort := ""
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 && !strings.Contains(hostport[i:], "]") {
		hostname, rawPort = hostport[:i], hostport[i+1:]
	}
	hostname = strings.ToLower(hostname)
	if hostname == "" {
		return "", false
	}

	var port uint64
	if rawPort != "" {
		n, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		port = 0
	}
	if port != 0 {
		return hostname + ":" + strconv.FormatUint(port, 10), true
	}
	return hostname, true
}
