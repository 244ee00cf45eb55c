package settings

import "regexp"

// Value is the tagged variant holding a single setting's resolved
// content. There is no absent Value: absence is a key missing from a
// Layer, which once Defaults() has been merged in is only possible for
// destination-url.
type Value struct {
	str   string
	num   int
	re    *regexp.Regexp
	kind  Kind
	isInt bool
}

// StringValue builds a KindString value.
func StringValue(s string) Value {
	return Value{str: s, kind: KindString}
}

// IntValue builds a KindInt value.
func IntValue(n int) Value {
	return Value{num: n, kind: KindInt, isInt: true}
}

// RegexValue builds a KindRegex value. re is nil for the "*" wildcard
// (treated specially as pass-through by the matcher) and nil for a
// source string that failed to compile (the never-match sentinel); the
// caller distinguishes the two cases by comparing Str() to "*".
func RegexValue(src string, re *regexp.Regexp) Value {
	return Value{str: src, re: re, kind: KindRegex}
}

// Kind reports which accessor is meaningful for this value.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string form: verbatim for KindString, the regex
// source text for KindRegex. Calling it on a KindInt value returns "".
func (v Value) Str() string { return v.str }

// Int returns the integer form. Calling it on a non-KindInt value
// returns 0.
func (v Value) Int() int { return v.num }

// Regex returns the compiled pattern for a KindRegex value, or nil if
// the value is the "*" wildcard or failed to compile.
func (v Value) Regex() *regexp.Regexp { return v.re }
