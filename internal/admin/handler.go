// Package admin implements the Admin API Handler (spec §4.8): the
// update/reset/list/one-off/list-headers endpoints operating on the
// Config Store, plus lowdown's ambient health and metrics surface.
package admin

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/CSroseX/lowdown/internal/auditlog"
	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
	"github.com/CSroseX/lowdown/internal/telemetry"
)

// Handler serves the admin plane. It holds no mutable state beyond
// what's already owned by the Config Store.
type Handler struct {
	store       *store.Store
	defaults    settings.Layer
	env         settings.Layer
	audit       *auditlog.Logger
	metrics     *telemetry.Metrics
	stats       *telemetry.RedisStats
	development bool
	mux         *http.ServeMux
}

// Config bundles Handler's collaborators.
type Config struct {
	Store       *store.Store
	Defaults    settings.Layer
	Env         settings.Layer
	Audit       *auditlog.Logger
	Metrics     *telemetry.Metrics
	Stats       *telemetry.RedisStats
	Development bool
}

// New builds a Handler and registers every admin route.
func New(cfg Config) *Handler {
	if cfg.Audit == nil {
		cfg.Audit = auditlog.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.New()
	}
	h := &Handler{
		store:       cfg.Store,
		defaults:    cfg.Defaults,
		env:         cfg.Env,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
		stats:       cfg.Stats,
		development: cfg.Development,
		mux:         http.NewServeMux(),
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	h.mux.HandleFunc("/api/v1/update", h.handleUpdate)
	h.mux.HandleFunc("/api/v1/reset", h.handleReset)
	h.mux.HandleFunc("/api/v1/list", h.handleList)
	h.mux.HandleFunc("/api/v1/one-off", h.handleOneOff)
	h.mux.HandleFunc("/api/v1/list-headers", h.handleListHeaders)
	h.mux.HandleFunc("/api/v1/stats", h.handleStats)
	h.mux.HandleFunc("/metrics", h.handleMetrics)
	h.mux.HandleFunc("/health", h.handleHealth)
	h.mux.HandleFunc("/healthcheck", h.handleHealth)
	h.mux.HandleFunc("/", h.handleRoot)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleUpdate implements POST /api/v1/update: merge the input layer
// (from x-lowdown-* request headers) into Admin, then reply with the
// full effective layer.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	input := settings.ExtractLayer(r.Header)
	h.store.MergeAdmin(input)
	h.audit.LogAdminMutation(auditlog.EventAdminUpdate, len(input))
	h.writeEffective(w)
}

// handleReset implements POST /api/v1/reset: replace Admin wholesale
// with the input layer (empty if no x-lowdown-* headers were sent).
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	input := settings.ExtractLayer(r.Header)
	h.store.ResetAdmin(input)
	h.audit.LogAdminMutation(auditlog.EventAdminReset, len(input))
	h.writeEffective(w)
}

// handleList implements GET /api/v1/list: the current effective
// layer, with no mutation.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeEffective(w)
}

// handleOneOff implements POST /api/v1/one-off: append the input
// layer to the queue and return it (not the full effective layer).
func (h *Handler) handleOneOff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	input := settings.ExtractLayer(r.Header)
	rule := h.store.PushOneOff(input)
	h.audit.LogAdminMutation(auditlog.EventOneOffQueued, len(input))
	_, queue := h.store.ReadSnapshot()
	h.metrics.SetOneOffQueueDepth(len(queue))

	out, err := settings.EncodeEffective(rule.Layer)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, out)
}

// handleListHeaders implements POST /api/v1/list-headers: logs the
// request's headers partitioned into lowdown/other, returns the
// sorted list of header names.
func (h *Handler) handleListHeaders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var names []string
	var lowdownCount, otherCount int
	for name := range r.Header {
		names = append(names, name)
		if strings.HasPrefix(strings.ToLower(name), "x-lowdown-") {
			lowdownCount++
		} else {
			otherCount++
		}
	}
	sort.Strings(names)
	h.audit.LogHeadersListed(lowdownCount, otherCount)

	out, err := json.Marshal(names)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, out)
}

// handleStats implements the supplemental GET /api/v1/stats endpoint,
// backed by the Redis rolling-counter mirror when one is configured.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stats == nil {
		h.writeJSON(w, []byte(`{"redis":false}`))
		return
	}
	destinations, err := h.stats.KnownDestinations(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	result, err := h.stats.FetchStats(r.Context(), destinations)
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	out, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, out)
}

// handleMetrics implements the supplemental GET /metrics endpoint in
// Prometheus text exposition format.
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.Handler().ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, []byte(`{"service":"lowdown","status":"healthy"}`))
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.writeJSON(w, []byte(`{"service":"lowdown"}`))
}

// writeEffective replies with Defaults ⊕ Env ⊕ Admin, per spec §4.8's
// adoption of the full effective layer for every admin endpoint, not
// just the merged Admin layer.
func (h *Handler) writeEffective(w http.ResponseWriter) {
	admin, _ := h.store.ReadSnapshot()
	effective := settings.Merge(h.defaults, h.env, admin)
	out, err := settings.EncodeEffective(effective)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, out)
}

// writeJSON replies with body as a JSON response, appending a trailing
// newline when LOWDOWN_DEVELOPMENT is set, per spec §6.
func (h *Handler) writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if h.development {
		body = append(body, '\n')
	}
	_, _ = w.Write(body)
}
