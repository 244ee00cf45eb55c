package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
)

func newTestHandler() *Handler {
	return New(Config{
		Store:    store.New(),
		Defaults: settings.Defaults(),
		Env:      settings.Layer{},
	})
}

func TestUpdateMergesAndReturnsEffective(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/update", nil)
	req.Header.Set("x-lowdown-fail-before-percentage", "50")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["fail-before-percentage"] != float64(50) {
		t.Fatalf("expected merged value, got %v", body["fail-before-percentage"])
	}
	if body["match-uri"] != "*" {
		t.Fatalf("expected default wildcard to still appear, got %v", body["match-uri"])
	}
	if body["destination-url"] != nil {
		t.Fatalf("expected null destination-url, got %v", body["destination-url"])
	}
}

func TestResetReplacesWholesale(t *testing.T) {
	h := newTestHandler()

	req1 := httptest.NewRequest(http.MethodPost, "/api/v1/update", nil)
	req1.Header.Set("x-lowdown-match-host", "a.example.com")
	h.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	req2.Header.Set("x-lowdown-match-method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req2)

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["match-host"] != "*" {
		t.Fatalf("expected reset to drop prior override, got %v", body["match-host"])
	}
	if body["match-method"] != "POST" {
		t.Fatalf("expected reset input to apply, got %v", body["match-method"])
	}
}

func TestListReturnsEffectiveWithoutMutating(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/list", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["fail-before-code"] != float64(503) {
		t.Fatalf("expected default fail-before-code, got %v", body["fail-before-code"])
	}
}

func TestOneOffReturnsOnlyTheAppendedLayer(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/one-off", nil)
	req.Header.Set("x-lowdown-fail-before-percentage", "100")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if _, ok := body["match-uri"]; ok {
		t.Fatalf("expected only the input layer's keys, not the full effective layer, got %v", body)
	}
	if body["fail-before-percentage"] != float64(100) {
		t.Fatalf("expected the pushed value, got %v", body["fail-before-percentage"])
	}
}

func TestListHeadersReturnsSortedNames(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/list-headers", nil)
	req.Header.Set("x-lowdown-match-host", "a.example.com")
	req.Header.Set("X-Custom", "value")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("expected sorted header names, got %v", names)
		}
	}
}

func TestRootAndHealthEndpoints(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != `{"service":"lowdown"}` {
		t.Fatalf("unexpected root body: %s", rec.Body.String())
	}

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec2.Body.String() != `{"service":"lowdown","status":"healthy"}` {
		t.Fatalf("unexpected health body: %s", rec2.Body.String())
	}
}

func TestMalformedAdminInputIsDroppedNotRejected(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/update", nil)
	req.Header.Set("x-lowdown-fail-before-percentage", "not-a-number")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even with malformed input, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["fail-before-percentage"] != float64(0) {
		t.Fatalf("expected default to remain since malformed value is dropped, got %v", body["fail-before-percentage"])
	}
}
