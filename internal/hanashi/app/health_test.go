package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bdobrica/hanashi/internal/hanashi/app"
	"github.com/bdobrica/hanashi/internal/hanashi/metrics"
)

type countStore struct {
	impressions, groups int
	err                 error
}

func (c *countStore) ImpressionCount(context.Context) (int, error) { return c.impressions, c.err }
func (c *countStore) GroupCount(context.Context) (int, error)      { return c.groups, c.err }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w, resp
}

func TestHealthServer_Health(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &countStore{})
	w, resp := get(t, hs, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
}

func TestHealthServer_Status(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &countStore{impressions: 7, groups: 2})
	w, resp := get(t, hs, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if int(resp["impression_count"].(float64)) != 7 {
		t.Errorf("impression_count: got %v, want 7", resp["impression_count"])
	}
	if int(resp["group_count"].(float64)) != 2 {
		t.Errorf("group_count: got %v, want 2", resp["group_count"])
	}
}

func TestHealthServer_StatusDegraded(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &countStore{err: errors.New("db locked")})
	_, resp := get(t, hs, "/status")
	if resp["status"] != "degraded" {
		t.Errorf("status: got %v, want degraded", resp["status"])
	}
}

func TestHealthServer_Metrics(t *testing.T) {
	m := metrics.New()
	m.Trigger("addressed")

	hs := app.NewHealthServer("127.0.0.1:0", nil)
	hs.Handle("/metrics", m.Handler())

	w, _ := get(t, hs, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hanashi_trigger_decisions_total") {
		t.Error("metrics body missing hanashi counters")
	}
}
