// Package auditlog provides structured JSON audit logging for every
// fault decision, admin mutation, and forwarding error lowdown
// produces, grounded on the zerolog-based audit logger used elsewhere
// in the corpus for chaos/decision events.
package auditlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies the kind of audit event.
type EventType string

// Event type constants for structured audit log entries.
const (
	EventMatched       EventType = "matched"
	EventUnmatched     EventType = "unmatched"
	EventFailBefore    EventType = "fail_before"
	EventFailAfter     EventType = "fail_after"
	EventDelayBefore   EventType = "delay_before"
	EventDelayAfter    EventType = "delay_after"
	EventDuplicate     EventType = "duplicate"
	EventForwarded     EventType = "forwarded"
	EventForwardError  EventType = "forward_error"
	EventConfigError   EventType = "config_error"
	EventAdminUpdate   EventType = "admin_update"
	EventAdminReset    EventType = "admin_reset"
	EventOneOffQueued  EventType = "one_off_queued"
	EventOneOffApplied EventType = "one_off_applied"
)

// Logger handles structured audit logging using zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON lines to w. development, when true,
// switches to zerolog's human-readable console writer, matching the
// LOWDOWN_DEVELOPMENT behavior used elsewhere in the ambient stack.
func New(w io.Writer, development bool) *Logger {
	if development {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().
		Timestamp().
		Str("component", "lowdown").
		Logger()
	return &Logger{zl: zl}
}

// NewStdout is a convenience constructor for the common case.
func NewStdout(development bool) *Logger {
	return New(os.Stdout, development)
}

// NewNop returns a Logger that discards every event, used in tests
// that don't care about audit output.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// LogMatch records whether a request matched its effective rule set.
func (l *Logger) LogMatch(requestID, method, path, destination string, matched bool) {
	event := EventUnmatched
	if matched {
		event = EventMatched
	}
	l.zl.Info().
		Str("event", string(event)).
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Str("destination", destination).
		Msg("match evaluated")
}

// LogFault records a single fault behavior firing for a request.
func (l *Logger) LogFault(requestID string, event EventType, code int, delay time.Duration) {
	ev := l.zl.Info().
		Str("event", string(event)).
		Str("request_id", requestID)
	if code != 0 {
		ev = ev.Int("code", code)
	}
	if delay != 0 {
		ev = ev.Dur("delay", delay)
	}
	ev.Msg("fault applied")
}

// LogForwardError records a failure to reach the destination itself,
// as opposed to a deliberately injected fault.
func (l *Logger) LogForwardError(requestID, destination string, err error) {
	l.zl.Error().
		Str("event", string(EventForwardError)).
		Str("request_id", requestID).
		Str("destination", destination).
		Err(err).
		Msg("forward failed")
}

// LogConfigError records a configuration problem that prevented
// resolving a forwardable snapshot, e.g. a missing destination-url.
func (l *Logger) LogConfigError(requestID string, err error) {
	l.zl.Warn().
		Str("event", string(EventConfigError)).
		Str("request_id", requestID).
		Err(err).
		Msg("configuration error")
}

// LogForwarded records a successful proxied response.
func (l *Logger) LogForwarded(requestID, destination string, statusCode int, duration time.Duration) {
	l.zl.Info().
		Str("event", string(EventForwarded)).
		Str("request_id", requestID).
		Str("destination", destination).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Msg("request forwarded")
}

// LogAdminMutation records an admin API call that changed the Admin
// layer or queued a one-off rule.
func (l *Logger) LogAdminMutation(event EventType, keyCount int) {
	l.zl.Info().
		Str("event", string(event)).
		Int("key_count", keyCount).
		Msg("admin layer mutated")
}

// LogHeadersListed records a list-headers admin call, partitioned
// into lowdown-prefixed and other header counts.
func (l *Logger) LogHeadersListed(lowdownCount, otherCount int) {
	l.zl.Info().
		Str("event", "list_headers").
		Int("lowdown_headers", lowdownCount).
		Int("other_headers", otherCount).
		Msg("headers listed")
}

// LogOneOffApplied records that a queued one-off rule was consumed by
// a matching request.
func (l *Logger) LogOneOffApplied(requestID string) {
	l.zl.Info().
		Str("event", string(EventOneOffApplied)).
		Str("request_id", requestID).
		Msg("one-off rule applied")
}
