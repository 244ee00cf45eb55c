// Package matcher evaluates the conjunction of match-* predicates
// against a request and its resolved destination, per spec §4.4.
package matcher

import (
	"net/http"
	"strings"

	"github.com/CSroseX/lowdown/internal/settings"
)

const wildcard = "*"

// Match reports whether every match-* predicate in snap accepts the
// request. path is the request path as seen by the matcher (after any
// path-based-forwarding rewrite); destHost is the resolved
// destination's host[:port], or "" if the destination couldn't be
// resolved (in which case match-host can never pass except via its own
// wildcard).
func Match(method, path, destHost string, header http.Header, snap settings.Snapshot) bool {
	return matchURI(path, snap) &&
		matchURIStartsWith(path, snap) &&
		matchURIRegex(path, snap) &&
		matchMethod(method, snap) &&
		matchHost(destHost, snap) &&
		matchHeader(header, snap)
}

func matchURI(path string, snap settings.Snapshot) bool {
	want := snap.String(settings.MatchURI)
	return want == wildcard || want == path
}

func matchURIStartsWith(path string, snap settings.Snapshot) bool {
	want := snap.String(settings.MatchURIStartsWith)
	return want == wildcard || strings.HasPrefix(path, want)
}

func matchURIRegex(path string, snap settings.Snapshot) bool {
	v, ok := snap.Value(settings.MatchURIRegex)
	if !ok || v.Str() == wildcard {
		return true
	}
	re := v.Regex()
	if re == nil {
		// Invalid regex source: never-match sentinel.
		return false
	}
	loc := re.FindStringIndex(path)
	return loc != nil && loc[0] == 0 && loc[1] == len(path)
}

func matchMethod(method string, snap settings.Snapshot) bool {
	want := snap.String(settings.MatchMethod)
	return want == wildcard || strings.EqualFold(want, method)
}

func matchHost(destHost string, snap settings.Snapshot) bool {
	want := snap.String(settings.MatchHost)
	if want == wildcard {
		return true
	}
	return strings.EqualFold(want, destHost)
}

func matchHeader(header http.Header, snap settings.Snapshot) bool {
	name := snap.String(settings.MatchHeaderName)
	value := snap.String(settings.MatchHeaderValue)
	if name == wildcard || value == wildcard {
		return true
	}
	for hn, values := range header {
		if !strings.EqualFold(hn, name) {
			continue
		}
		for _, v := range values {
			if v == value {
				return true
			}
		}
	}
	return false
}
