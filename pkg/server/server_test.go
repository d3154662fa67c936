package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oarkflow/calc/pkg/config"
)

func do(t *testing.T, s *Server, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func newSession(t *testing.T, s *Server) string {
	t.Helper()
	status, out := do(t, s, http.MethodPost, "/api/sessions", nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	id, _ := out["id"].(string)
	if id == "" {
		t.Fatalf("expected a session id, got %v", out)
	}
	return id
}

func TestHealth(t *testing.T) {
	s := NewServer(nil, Config{Version: "test"})
	status, out := do(t, s, http.MethodGet, "/api/health", nil)
	if status != http.StatusOK || out["status"] != "healthy" {
		t.Fatalf("expected healthy, got %d %v", status, out)
	}
}

func TestEvalFlow(t *testing.T) {
	s := NewServer(config.Default(), Config{})
	id := newSession(t, s)
	base := "/api/sessions/" + id

	steps := []struct {
		line  string
		value float64
		void  bool
	}{
		{"a = 10", 10, false},
		{"a * 2", 20, false},
		{"add x y => x + y", 0, true},
		{"add 3 4", 7, false},
		{"10.3", 10.3, false},
	}
	for _, step := range steps {
		status, out := do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": step.line})
		if status != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d %v", step.line, status, out)
		}
		if step.void {
			if out["void"] != true {
				t.Fatalf("%q: expected void, got %v", step.line, out)
			}
			continue
		}
		if out["value"] != step.value {
			t.Fatalf("%q: expected %v, got %v", step.line, step.value, out)
		}
	}

	status, out := do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "b = 5 5"})
	if status != http.StatusBadRequest || out["code"] != "TRAILING_INPUT" {
		t.Fatalf("expected 400 TRAILING_INPUT, got %d %v", status, out)
	}

	status, out = do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "1 % 0"})
	if status != http.StatusOK || out["text"] != "NaN" {
		t.Fatalf("expected NaN text, got %d %v", status, out)
	}
	if _, ok := out["value"]; ok {
		t.Fatalf("expected no numeric value for NaN, got %v", out)
	}
}

func TestSymbolsAndVars(t *testing.T) {
	s := NewServer(nil, Config{})
	id := newSession(t, s)
	base := "/api/sessions/" + id

	status, _ := do(t, s, http.MethodPut, base+"/vars/rate", map[string]any{"value": "2.5"})
	if status != http.StatusOK {
		t.Fatalf("expected 200 for numeric string, got %d", status)
	}
	status, _ = do(t, s, http.MethodPut, base+"/vars/rate", map[string]any{"value": "abc"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for non numeric value, got %d", status)
	}
	do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "f x => x * 2"})
	status, _ = do(t, s, http.MethodPut, base+"/vars/f", map[string]any{"value": 1})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for a function name, got %d", status)
	}
	_, out := do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "rate * 2"})
	if out["value"] != float64(5) {
		t.Fatalf("expected 5, got %v", out)
	}

	req := httptest.NewRequest(http.MethodGet, base+"/symbols", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("symbols request failed: %v", err)
	}
	defer resp.Body.Close()
	var symbols []SymbolResponse
	if err := json.NewDecoder(resp.Body).Decode(&symbols); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0].Kind != "function" || symbols[1].Kind != "variable" {
		t.Fatalf("expected f and rate, got %+v", symbols)
	}
}

func TestSymbolsList(t *testing.T) {
	s := NewServer(nil, Config{})
	id := newSession(t, s)
	base := "/api/sessions/" + id
	do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "b = 2"})
	do(t, s, http.MethodPost, base+"/eval", map[string]any{"line": "add x y => x + y"})

	req := httptest.NewRequest(http.MethodGet, base+"/symbols", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("symbols request failed: %v", err)
	}
	defer resp.Body.Close()
	var symbols []SymbolResponse
	if err := json.NewDecoder(resp.Body).Decode(&symbols); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %v", symbols)
	}
	if symbols[0].Name != "add" || symbols[0].Arity == nil || *symbols[0].Arity != 2 {
		t.Fatalf("expected add/2 first, got %+v", symbols[0])
	}
	if symbols[1].Name != "b" || symbols[1].Value == nil || *symbols[1].Value != 2 {
		t.Fatalf("expected b = 2 second, got %+v", symbols[1])
	}
}

func TestSessionLifecycle(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxSessions = 1
	s := NewServer(cfg, Config{})
	id := newSession(t, s)

	status, _ := do(t, s, http.MethodPost, "/api/sessions", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 at the session limit, got %d", status)
	}
	status, _ = do(t, s, http.MethodDelete, "/api/sessions/"+id, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", status)
	}
	status, _ = do(t, s, http.MethodPost, "/api/sessions/"+id+"/eval", map[string]any{"line": "1"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for a deleted session, got %d", status)
	}
	newSession(t, s)
}
