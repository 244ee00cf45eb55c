package lifecycle

import (
	"net/http"
	"net/url"
	"strings"
)

const lowdownHeaderPrefix = "x-lowdown-"

// hopByHopHeaders is the RFC 7230 §6.1 list of headers that apply only
// to a single transport hop and must never be relayed by a proxy.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// StripLowdownHeaders returns a copy of header with every x-lowdown-*
// entry removed, per spec §4.6: none of lowdown's own control headers
// are forwarded to the backend.
func StripLowdownHeaders(header http.Header) http.Header {
	out := make(http.Header, len(header))
	for name, values := range header {
		if strings.HasPrefix(strings.ToLower(name), lowdownHeaderPrefix) {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// StripHopByHopHeaders returns a copy of header with the RFC 7230
// hop-by-hop set removed, plus any header named in a Connection value,
// per spec §4.7: "handled per the standard reverse-proxy convention:
// not forwarded". Applies to both the outbound leg (client → backend)
// and the inbound leg (backend → client).
func StripHopByHopHeaders(header http.Header) http.Header {
	drop := make(map[string]struct{}, len(hopByHopHeaders))
	for _, name := range hopByHopHeaders {
		drop[strings.ToLower(name)] = struct{}{}
	}
	for _, connValue := range header.Values("Connection") {
		for _, token := range strings.Split(connValue, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token != "" {
				drop[token] = struct{}{}
			}
		}
	}

	out := make(http.Header, len(header))
	for name, values := range header {
		if _, ok := drop[strings.ToLower(name)]; ok {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// RewriteOutboundOrigin rewrites an Origin header, if present, to the
// destination's own scheme://host[:port], per spec §4.7.
func RewriteOutboundOrigin(header http.Header, dest *url.URL) {
	if header.Get("Origin") == "" {
		return
	}
	header.Set("Origin", dest.Scheme+"://"+dest.Host)
}

// RewriteCORSResponseHeader implements the inbound half of §4.7: if the
// client sent an Origin and the backend responded with
// Access-Control-Allow-Origin, the backend's value is replaced with
// the client's original Origin.
func RewriteCORSResponseHeader(clientOrigin string, respHeader http.Header) {
	if clientOrigin == "" {
		return
	}
	if respHeader.Get("Access-Control-Allow-Origin") == "" {
		return
	}
	respHeader.Set("Access-Control-Allow-Origin", clientOrigin)
}
