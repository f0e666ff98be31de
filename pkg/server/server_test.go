package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/config"
	"github.com/patrickkidd/ccmemory/pkg/embedder"
	"github.com/patrickkidd/ccmemory/pkg/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	client, err := ccmemory.New(context.Background(), ccmemory.Options{
		Store:    store.NewMemoryStore(),
		Embedder: embedder.NewStaticClient(64),
	}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8385, Mode: "test"},
	}
	srv := New(cfg, client, nil)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestSetup(t *testing.T) {
	srv := testServer(t)

	if srv.router == nil {
		t.Error("expected router to be initialized")
	}
	if srv.server == nil {
		t.Error("expected http.Server to be initialized")
	}
	expectedAddr := "localhost:8385"
	if srv.server.Addr != expectedAddr {
		t.Errorf("expected addr %s, got %s", expectedAddr, srv.server.Addr)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/health", "/live", "/ready"} {
		w := doJSON(t, srv, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

func TestCreateFactEndpoint(t *testing.T) {
	srv := testServer(t)

	body := map[string]any{
		"project": "proj",
		"owner":   "alice",
		"fact": map[string]any{
			"type":     "decision",
			"decision": map[string]any{"description": "serve http with gin"},
		},
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/facts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		Action string `json:"action"`
		FactID string `json:"fact_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Action != "created" {
		t.Errorf("expected action created, got %s", res.Action)
	}
	if res.FactID == "" {
		t.Error("expected non-empty fact_id")
	}

	// Same text again is a duplicate: 200 with action=skipped.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/facts", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for duplicate, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Action != "skipped" {
		t.Errorf("expected action skipped, got %s", res.Action)
	}

	// Fetch it back.
	w = doJSON(t, srv, http.MethodGet, "/api/v1/facts?project=proj&owner=alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var list struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("expected 1 fact, got %d", list.Total)
	}
}

func TestCreateFactValidation(t *testing.T) {
	srv := testServer(t)

	// Missing project.
	w := doJSON(t, srv, http.MethodPost, "/api/v1/facts", map[string]any{
		"fact": map[string]any{"type": "decision"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	// Missing payload.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/facts", map[string]any{
		"project": "proj",
		"fact":    map[string]any{"type": "decision"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := testServer(t)

	create := map[string]any{
		"project": "proj",
		"fact": map[string]any{
			"type":     "decision",
			"decision": map[string]any{"description": "store vectors in badger"},
		},
	}
	if w := doJSON(t, srv, http.MethodPost, "/api/v1/facts", create); w.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", w.Code)
	}

	w := doJSON(t, srv, http.MethodPost, "/api/v1/search", map[string]any{
		"project": "proj",
		"query":   "badger",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected 1 hit, got %d", res.Total)
	}

	// Empty query is rejected.
	w = doJSON(t, srv, http.MethodPost, "/api/v1/search", map[string]any{"project": "proj"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestGetFactNotFound(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/facts/nope?project=proj", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestAssertEndpoint(t *testing.T) {
	srv := testServer(t)

	createFact := func(desc string) string {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/facts", map[string]any{
			"project": "proj",
			"fact": map[string]any{
				"type":     "decision",
				"decision": map[string]any{"description": desc},
			},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("setup create failed: %d", w.Code)
		}
		var res struct {
			FactID string `json:"fact_id"`
		}
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return res.FactID
	}

	a := createFact("adopt slog for logging")
	b := createFact("log level comes from config")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/edges", map[string]any{
		"project": "proj",
		"source":  b,
		"target":  a,
		"type":    "DEPENDS_ON",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Edge struct {
			Type string `json:"type"`
		} `json:"edge"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Edge.Type != "DEPENDS_ON" {
		t.Errorf("expected type DEPENDS_ON, got %s", res.Edge.Type)
	}
}

func TestPurgeEndpoint(t *testing.T) {
	srv := testServer(t)

	// Purging without confirm is rejected.
	w := doJSON(t, srv, http.MethodDelete, "/api/v1/project", map[string]any{
		"project": "proj",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without confirm, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/project", map[string]any{
		"project": "proj",
		"confirm": true,
	})
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/metrics?project=proj", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var m struct {
		CognitiveCoeff float64 `json:"cognitive_coefficient"`
	}
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if m.CognitiveCoeff != 1.0 {
		t.Errorf("expected baseline coefficient 1.0, got %f", m.CognitiveCoeff)
	}
}

func TestPatternsEndpoints(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{
		"/api/v1/patterns/exceptions?project=proj",
		"/api/v1/patterns/chains?project=proj",
		"/api/v1/patterns/corrections?project=proj",
	} {
		w := doJSON(t, srv, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
		var resp map[string]any
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: failed to decode response: %v", path, err)
		}
		if resp["total"] != float64(0) {
			t.Errorf("%s: expected empty result set, got %v", path, resp["total"])
		}
	}

	w := doJSON(t, srv, http.MethodGet, "/api/v1/patterns/chains?project=proj&limit=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad limit, got %d", w.Code)
	}
}

func TestBackfillEndpoint(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/backfill", map[string]any{
		"project":  "proj",
		"owner":    "alice",
		"markdown": "## 2026-04-01: Pin the embedding model version\n\nDrift broke dedup twice.\n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Stored  int `json:"stored"`
		Skipped int `json:"skipped"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Stored != 1 || resp.Skipped != 0 {
		t.Errorf("expected 1 stored, got stored=%d skipped=%d", resp.Stored, resp.Skipped)
	}
}
