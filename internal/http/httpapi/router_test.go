package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"fluxserver/internal/http/handlers"
	"fluxserver/internal/imagegen"
	"fluxserver/internal/infra"
	"fluxserver/internal/metrics"
)

type countingGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *countingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func (g *countingGenerator) Execute(_ context.Context, req imagegen.Request) (imagegen.Result, error) {
	g.mu.Lock()
	g.n++
	g.mu.Unlock()
	return imagegen.Result{Image: []byte("png"), MIMEType: imagegen.MIMEType, Width: req.Width, Height: req.Height}, nil
}

func newTestServer(t *testing.T, cfg *infra.Config) (*httptest.Server, *countingGenerator) {
	t.Helper()
	gen := &countingGenerator{}
	app := handlers.NewApp(gen, metrics.NewCollector("test"), zerolog.Nop())
	srv := httptest.NewServer(NewRouter(cfg, app, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, gen
}

func TestRoutes(t *testing.T) {
	srv, gen := newTestServer(t, &infra.Config{})

	tests := []struct {
		method, path, body string
		wantStatus         int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/models", "", http.StatusOK},
		{http.MethodGet, "/openapi.json", "", http.StatusOK},
		{http.MethodPost, "/generate", `{"prompt":"a red fox"}`, http.StatusOK},
		{http.MethodPost, "/generate", `{"prompt":""}`, http.StatusBadRequest},
		{http.MethodGet, "/generate", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.wantStatus {
			t.Fatalf("%s %s: status %d, want %d", tc.method, tc.path, resp.StatusCode, tc.wantStatus)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: missing X-Request-ID header", tc.method, tc.path)
		}
	}
	if n := gen.calls(); n != 1 {
		t.Fatalf("generator called %d times, want 1", n)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `test_generations_total{outcome="success"} 1`) {
		t.Fatalf("metrics missing generation counter:\n%s", body)
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	srv, gen := newTestServer(t, &infra.Config{RateLimitPerMin: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/generate", "application/json", strings.NewReader(`{"prompt":"fox"}`))
		if err != nil {
			t.Fatalf("POST /generate: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			var body map[string]any
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if body["success"] != false {
				t.Fatalf("429 body = %v", body)
			}
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 429]", codes)
	}
	if n := gen.calls(); n != 1 {
		t.Fatalf("generator called %d times, want 1", n)
	}

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health must not be rate limited, got %d", resp.StatusCode)
	}
}

func TestRateLimitKeysOnPeerUnlessProxyTrusted(t *testing.T) {
	post := func(t *testing.T, url, forwarded string) int {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, url+"/generate", strings.NewReader(`{"prompt":"fox"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST /generate: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	srv, _ := newTestServer(t, &infra.Config{RateLimitPerMin: 1})
	if got := []int{post(t, srv.URL, "203.0.113.1"), post(t, srv.URL, "203.0.113.2")}; got[1] != http.StatusTooManyRequests {
		t.Fatalf("spoofed X-Forwarded-For bypassed the limit: %v", got)
	}

	trusted, _ := newTestServer(t, &infra.Config{RateLimitPerMin: 1, TrustProxyHeaders: true})
	if got := []int{post(t, trusted.URL, "203.0.113.1"), post(t, trusted.URL, "203.0.113.2")}; got[0] != http.StatusOK || got[1] != http.StatusOK {
		t.Fatalf("trusted proxy clients should be limited separately: %v", got)
	}
}
