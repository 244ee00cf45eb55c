package settings

import "strings"

// headerPrefix is prepended to a key to form the per-request override
// header name.
const headerPrefix = "x-lowdown-"

// HeaderName returns the x-lowdown-<key> header name for k.
func HeaderName(k Key) string {
	return headerPrefix + string(k)
}

// KeyFromHeaderName reports the recognized key for a header name, if
// any. Matching is case-insensitive, as all HTTP header names are.
// Unknown x-lowdown-* suffixes (and any header without the prefix)
// report ok=false and are ignored by the caller.
func KeyFromHeaderName(h string) (Key, bool) {
	lower := strings.ToLower(h)
	if !strings.HasPrefix(lower, headerPrefix) {
		return "", false
	}
	suffix := Key(strings.TrimPrefix(lower, headerPrefix))
	for _, k := range AllKeys {
		if k == suffix {
			return k, true
		}
	}
	return "", false
}

// EnvName returns the UPPER_SNAKE_CASE environment variable name for k.
func EnvName(k Key) string {
	return strings.ToUpper(strings.ReplaceAll(string(k), "-", "_"))
}
