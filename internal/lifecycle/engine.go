// Package lifecycle implements the Request Lifecycle Engine (spec
// §4.6): the state machine that takes a resolved, matched request
// through delay, fault, and forwarding decisions and produces a
// response.
package lifecycle

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/CSroseX/lowdown/internal/auditlog"
	"github.com/CSroseX/lowdown/internal/fault"
	"github.com/CSroseX/lowdown/internal/matcher"
	"github.com/CSroseX/lowdown/internal/requestctx"
	"github.com/CSroseX/lowdown/internal/resolver"
	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
	"github.com/CSroseX/lowdown/internal/telemetry"
)

// Engine is the proxy-side HTTP handler. It owns no mutable state of
// its own beyond what's passed in; all shared mutable state lives in
// the Config Store.
type Engine struct {
	store     *store.Store
	defaults  settings.Layer
	env       settings.Layer
	forwarder Forwarder
	audit     *auditlog.Logger
	metrics   *telemetry.Metrics
	stats     *telemetry.RedisStats // nil if no Redis configured
	tracer    string
}

// Config bundles Engine's collaborators, all of which are external to
// the lifecycle logic itself (transport, audit, metrics).
type Config struct {
	Store     *store.Store
	Defaults  settings.Layer
	Env       settings.Layer
	Forwarder Forwarder
	Audit     *auditlog.Logger
	Metrics   *telemetry.Metrics
	Stats     *telemetry.RedisStats
	Tracer    string
}

// NewEngine builds an Engine from cfg, filling in no-op collaborators
// for anything left nil so a minimal Config is still safe to use.
func NewEngine(cfg Config) *Engine {
	if cfg.Audit == nil {
		cfg.Audit = auditlog.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.New()
	}
	if cfg.Tracer == "" {
		cfg.Tracer = "lowdown"
	}
	return &Engine{
		store:     cfg.Store,
		defaults:  cfg.Defaults,
		env:       cfg.Env,
		forwarder: cfg.Forwarder,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		stats:     cfg.Stats,
		tracer:    cfg.Tracer,
	}
}

// ServeHTTP implements the full RECEIVED → ... → RESPOND pipeline.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := telemetry.StartStage(r.Context(), e.tracer, "lifecycle")
	defer span.End()

	requestID := requestctx.RequestID(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		e.respondConfigError(w, requestID, err)
		return
	}

	path, syntheticDest := resolver.RewritePathForwarding(r.URL.Path)
	header := r.Header.Clone()
	if syntheticDest != "" {
		header.Set("x-lowdown-destination-url", syntheticDest)
	}

	res := resolver.Resolve(e.store, e.defaults, e.env, r.Method, path, header)
	snap := res.Snapshot
	if res.ConsumedOneOff {
		e.audit.LogOneOffApplied(requestID)
		_, queue := e.store.ReadSnapshot()
		e.metrics.SetOneOffQueueDepth(len(queue))
	}

	destURL, err := resolver.ParseDestinationURL(snap)
	if err != nil {
		e.audit.LogConfigError(requestID, err)
		e.respondConfigError(w, requestID, err)
		e.metrics.RecordRequest("config_error", time.Since(start))
		return
	}

	matched := matcher.Match(r.Method, path, destURL.Host, header, snap)
	e.audit.LogMatch(requestID, r.Method, path, destURL.String(), matched)

	outboundHeader := StripHopByHopHeaders(StripLowdownHeaders(header))
	RewriteOutboundOrigin(outboundHeader, destURL)
	clientOrigin := r.Header.Get("Origin")

	e.trackStats(destURL.String())

	if !matched {
		e.forwardAndRespond(ctx, w, requestID, destURL, r.Method, outboundHeader, body, clientOrigin, start)
		return
	}

	decision := fault.Decide(snap)

	if decision.FailBefore {
		e.audit.LogFault(requestID, auditlog.EventFailBefore, decision.FailBeforeCode, 0)
		e.metrics.RecordFault("fail_before")
		e.writeSynthetic(w, decision.FailBeforeCode)
		e.metrics.RecordRequest("failed", time.Since(start))
		if e.stats != nil {
			e.stats.RecordFault(destURL.String(), "fail_before")
		}
		return
	}

	if decision.DelayBefore > 0 {
		e.audit.LogFault(requestID, auditlog.EventDelayBefore, 0, decision.DelayBefore)
		e.metrics.RecordFault("delay_before")
		delayCtx, delaySpan := telemetry.StartStage(ctx, e.tracer, "delay-before")
		ok := sleepOrCancel(delayCtx, decision.DelayBefore)
		delaySpan.End()
		if !ok {
			return
		}
	}

	forwardCtx, forwardSpan := telemetry.StartStage(ctx, e.tracer, "forward")
	var resp *Response
	if decision.Duplicate {
		e.audit.LogFault(requestID, auditlog.EventDuplicate, 0, 0)
		e.metrics.RecordFault("duplicate")
		var secondary *Response
		resp, secondary, err = e.forwardDuplicated(forwardCtx, r.Method, destURL, outboundHeader, body)
		e.logDuplicateAgreement(requestID, resp, secondary)
	} else {
		resp, err = e.forwarder.Forward(forwardCtx, r.Method, destURL, outboundHeader, body)
	}
	forwardSpan.End()
	if err != nil {
		e.audit.LogForwardError(requestID, destURL.String(), err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		e.metrics.RecordRequest("failed", time.Since(start))
		return
	}

	if decision.DelayAfter > 0 {
		e.audit.LogFault(requestID, auditlog.EventDelayAfter, 0, decision.DelayAfter)
		e.metrics.RecordFault("delay_after")
		delayCtx, delaySpan := telemetry.StartStage(ctx, e.tracer, "delay-after")
		ok := sleepOrCancel(delayCtx, decision.DelayAfter)
		delaySpan.End()
		if !ok {
			return
		}
	}

	if decision.FailAfter {
		e.audit.LogFault(requestID, auditlog.EventFailAfter, decision.FailAfterCode, 0)
		e.metrics.RecordFault("fail_after")
		e.writeSynthetic(w, decision.FailAfterCode)
		e.metrics.RecordRequest("failed", time.Since(start))
		if e.stats != nil {
			e.stats.RecordFault(destURL.String(), "fail_after")
		}
		return
	}

	e.writeResponse(w, resp, clientOrigin)
	e.audit.LogForwarded(requestID, destURL.String(), resp.StatusCode, time.Since(start))
	e.metrics.RecordRequest("forwarded", time.Since(start))
	if e.stats != nil {
		e.stats.RecordRequest(destURL.String(), resp.StatusCode)
	}
}

func (e *Engine) forwardAndRespond(ctx context.Context, w http.ResponseWriter, requestID string, dest *url.URL, method string, header http.Header, body []byte, clientOrigin string, start time.Time) {
	forwardCtx, forwardSpan := telemetry.StartStage(ctx, e.tracer, "forward")
	resp, err := e.forwarder.Forward(forwardCtx, method, dest, header, body)
	forwardSpan.End()
	if err != nil {
		e.audit.LogForwardError(requestID, dest.String(), err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		e.metrics.RecordRequest("failed", time.Since(start))
		return
	}
	e.writeResponse(w, resp, clientOrigin)
	e.audit.LogForwarded(requestID, dest.String(), resp.StatusCode, time.Since(start))
	e.metrics.RecordRequest("forwarded", time.Since(start))
	if e.stats != nil {
		e.stats.RecordRequest(dest.String(), resp.StatusCode)
	}
}

// forwardDuplicated dispatches the same request twice in parallel and
// returns both responses; the caller treats primary as authoritative.
// Per spec §4.6, a duplicate transport error never fails the request
// as long as the primary succeeds.
func (e *Engine) forwardDuplicated(ctx context.Context, method string, dest *url.URL, header http.Header, body []byte) (primary, secondary *Response, primaryErr error) {
	var wg sync.WaitGroup
	var secondaryErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		primary, primaryErr = e.forwarder.Forward(ctx, method, dest, cloneHeader(header), body)
	}()
	go func() {
		defer wg.Done()
		secondary, secondaryErr = e.forwarder.Forward(ctx, method, dest, cloneHeader(header), body)
	}()
	wg.Wait()

	_ = secondaryErr
	return primary, secondary, primaryErr
}

// logDuplicateAgreement logs a duplicate event carrying the primary's
// status code when the primary and duplicate dispatch observed
// different status codes. Nothing is logged when the codes agree or
// when either dispatch returned no response.
func (e *Engine) logDuplicateAgreement(requestID string, primary, secondary *Response) {
	if primary == nil || secondary == nil {
		return
	}
	event := auditlog.EventDuplicate
	if primary.StatusCode != secondary.StatusCode {
		e.audit.LogFault(requestID, event, primary.StatusCode, 0)
	}
}

func (e *Engine) trackStats(destination string) {
	if e.stats != nil {
		e.stats.TrackDestination(destination)
	}
}

func (e *Engine) writeSynthetic(w http.ResponseWriter, code int) {
	w.WriteHeader(code)
}

func (e *Engine) writeResponse(w http.ResponseWriter, resp *Response, clientOrigin string) {
	RewriteCORSResponseHeader(clientOrigin, resp.Header)
	inbound := StripHopByHopHeaders(resp.Header)
	for name, values := range inbound {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (e *Engine) respondConfigError(w http.ResponseWriter, requestID string, err error) {
	http.Error(w, "Bad Gateway: "+err.Error(), http.StatusBadGateway)
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func cloneHeader(h http.Header) http.Header {
	return h.Clone()
}
