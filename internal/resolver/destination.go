// Package resolver implements the Snapshot Resolver (spec §4.3): given
// the current config layers and an inbound request, it produces the
// effective per-request Snapshot and, if a queued one-off rule matched,
// atomically consumes it.
package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CSroseX/lowdown/internal/settings"
)

const (
	forwardHTTPPrefix  = "/lowdown-forward-http/"
	forwardHTTPSPrefix = "/lowdown-forward-https/"
)

// RewritePathForwarding implements spec §4.6's path-based destination
// extraction. If path begins with /lowdown-forward-http(s)/<host>, the
// host segment is pulled out into a <scheme>://<host> destination URL,
// and path is rewritten to the remainder (or "/" if there is none). The
// caller injects that URL as x-lowdown-destination-url before the
// Snapshot Resolver extracts the Request layer, so the synthesized
// header is picked up exactly like any other client-supplied override.
//
// Returns the (possibly unchanged) path and the synthesized
// destination-url header value, or "" if the path didn't match either
// prefix.
func RewritePathForwarding(path string) (newPath string, destinationURL string) {
	scheme, rest, ok := splitForwardPrefix(path)
	if !ok {
		return path, ""
	}

	host, remainder := splitHostAndRemainder(rest)
	if host == "" {
		return path, ""
	}

	newPath = remainder
	if newPath == "" {
		newPath = "/"
	}
	return newPath, fmt.Sprintf("%s://%s", scheme, host)
}

func splitForwardPrefix(path string) (scheme, rest string, ok bool) {
	switch {
	case strings.HasPrefix(path, forwardHTTPPrefix):
		return "http", strings.TrimPrefix(path, forwardHTTPPrefix), true
	case strings.HasPrefix(path, forwardHTTPSPrefix):
		return "https", strings.TrimPrefix(path, forwardHTTPSPrefix), true
	default:
		return "", "", false
	}
}

func splitHostAndRemainder(rest string) (host, remainder string) {
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return rest, ""
	}
	return rest[:idx], rest[idx:]
}

// ParseDestinationURL validates the destination-url value from a
// resolved layer per spec §3's invariant: it must be a well-formed
// absolute HTTP(S) URL before forwarding. Absence or malformedness both
// report an error; callers use this right before forwarding, not at
// layer-extraction time.
func ParseDestinationURL(snap settings.Snapshot) (*url.URL, error) {
	raw := snap.String(settings.DestinationURL)
	if !snap.DestinationURLSet() || raw == "" {
		return nil, fmt.Errorf("destination-url is not set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("destination-url %q is not a valid URL: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("destination-url %q is not an absolute URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("destination-url %q has unsupported scheme %q", raw, u.Scheme)
	}
	return u, nil
}

// destinationHost returns the best-effort host used by matchers, or ""
// if destination-url is absent or malformed. Matcher predicates that
// test match-host simply never match in that case, which is the
// correct behavior: an unresolvable destination is caught later, as a
// configuration error, by the lifecycle engine.
func destinationHost(base settings.Layer) string {
	u, err := ParseDestinationURL(settings.NewSnapshot(base))
	if err != nil {
		return ""
	}
	return u.Host
}
