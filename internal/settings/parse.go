package settings

import (
	"net/http"
	"regexp"
	"strconv"
)

// ParseValue converts a raw string into the Value for key k, per the
// rules in spec §4.1. For KindInt keys, a value that fails to parse as
// an integer is dropped (ok=false) rather than stored — the caller must
// omit the key from the layer so resolution falls through to the layer
// below. For KindRegex, "*" is the wildcard pass-through and any other
// string is always kept (ok=true) even when it fails to compile: an
// invalid pattern becomes a never-match sentinel, not a dropped key.
// Every other kind is stored verbatim.
func ParseValue(raw string, k Key) (Value, bool) {
	switch KindOf(k) {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, false
		}
		return IntValue(n), true
	case KindRegex:
		if raw == wildcard {
			return RegexValue(wildcard, nil), true
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return RegexValue(raw, nil), true
		}
		return RegexValue(raw, re), true
	default:
		return StringValue(raw), true
	}
}

// ExtractLayer builds a Layer from an http.Header by reading every
// x-lowdown-<key> header present. Unknown suffixes are ignored; keys
// whose value fails to parse are dropped from the result (not stored as
// absent-but-present — simply never added to the map).
func ExtractLayer(h http.Header) Layer {
	l := make(Layer)
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		k, ok := KeyFromHeaderName(name)
		if !ok {
			continue
		}
		v, ok := ParseValue(values[0], k)
		if !ok {
			continue
		}
		l[k] = v
	}
	return l
}

// ExtractLayerFromEnv builds a Layer by probing lookup for every
// recognized key's environment variable name.
func ExtractLayerFromEnv(lookup func(string) (string, bool)) Layer {
	l := make(Layer)
	for _, k := range AllKeys {
		raw, ok := lookup(EnvName(k))
		if !ok {
			continue
		}
		v, ok := ParseValue(raw, k)
		if !ok {
			continue
		}
		l[k] = v
	}
	return l
}
