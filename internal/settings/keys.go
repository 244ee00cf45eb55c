// Package settings defines the recognized configuration keys, their
// defaults, and the header/env/layer conversions used to resolve a
// per-request snapshot.
package settings

// Key is a recognized setting identifier, always kebab-case.
type Key string

// The full set of recognized setting keys.
const (
	DelayAfterMs         Key = "delay-after-ms"
	DelayAfterPercentage Key = "delay-after-percentage"
	DelayBeforeMs        Key = "delay-before-ms"
	DelayBeforePercentage Key = "delay-before-percentage"
	DestinationURL       Key = "destination-url"
	DuplicatePercentage   Key = "duplicate-percentage"
	FailAfterCode        Key = "fail-after-code"
	FailAfterPercentage  Key = "fail-after-percentage"
	FailBeforeCode       Key = "fail-before-code"
	FailBeforePercentage Key = "fail-before-percentage"
	MatchHeaderName      Key = "match-header-name"
	MatchHeaderValue     Key = "match-header-value"
	MatchHost            Key = "match-host"
	MatchMethod          Key = "match-method"
	MatchURI             Key = "match-uri"
	MatchURIRegex        Key = "match-uri-regex"
	MatchURIStartsWith   Key = "match-uri-starts-with"
)

// AllKeys enumerates every recognized setting key. Order is stable and
// matches the table in spec §6.
var AllKeys = []Key{
	DelayAfterMs,
	DelayAfterPercentage,
	DelayBeforeMs,
	DelayBeforePercentage,
	DestinationURL,
	DuplicatePercentage,
	FailAfterCode,
	FailAfterPercentage,
	FailBeforeCode,
	FailBeforePercentage,
	MatchHeaderName,
	MatchHeaderValue,
	MatchHost,
	MatchMethod,
	MatchURI,
	MatchURIRegex,
	MatchURIStartsWith,
}

// Kind describes how a key's raw value is parsed and encoded.
type Kind int

// Kinds of setting values.
const (
	KindString Kind = iota
	KindInt
	KindRegex
)

// KindOf returns the parse/encode kind for a key. Unknown keys are
// treated as KindString (they are never matched against AllKeys
// elsewhere, so this only matters for defensive callers).
func KindOf(k Key) Kind {
	switch k {
	case DelayAfterMs, DelayBeforeMs,
		DelayAfterPercentage, DelayBeforePercentage,
		DuplicatePercentage,
		FailAfterCode, FailAfterPercentage,
		FailBeforeCode, FailBeforePercentage:
		return KindInt
	case MatchURIRegex:
		return KindRegex
	default:
		return KindString
	}
}

// wildcard is the match-anything sentinel used by every match-* key.
const wildcard = "*"

// Defaults returns a freshly built Layer holding the built-in default for
// every recognized key except destination-url, which has no default (it
// is absent until set by env, admin, request header, or one-off rule).
func Defaults() Layer {
	l := make(Layer, len(AllKeys)-1)
	l[DelayAfterMs] = IntValue(0)
	l[DelayAfterPercentage] = IntValue(0)
	l[DelayBeforeMs] = IntValue(0)
	l[DelayBeforePercentage] = IntValue(0)
	l[DuplicatePercentage] = IntValue(0)
	l[FailAfterCode] = IntValue(502)
	l[FailAfterPercentage] = IntValue(0)
	l[FailBeforeCode] = IntValue(503)
	l[FailBeforePercentage] = IntValue(0)
	l[MatchHeaderName] = StringValue(wildcard)
	l[MatchHeaderValue] = StringValue(wildcard)
	l[MatchHost] = StringValue(wildcard)
	l[MatchMethod] = StringValue(wildcard)
	l[MatchURI] = StringValue(wildcard)
	l[MatchURIRegex] = RegexValue(wildcard, nil)
	l[MatchURIStartsWith] = StringValue(wildcard)
	return l
}
