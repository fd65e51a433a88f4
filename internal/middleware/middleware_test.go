package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := RequestID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" {
		t.Fatalf("expected generated request id in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("request id = %q, want caller supplied %q", seen, "abc-123")
	}
}

func TestAccessLogReportsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	type observation struct {
		method, route string
		status        int
	}
	var got []observation

	r := chi.NewRouter()
	r.Use(RequestID(logger), AccessLog(func(method, route string, status int) {
		got = append(got, observation{method, route, status})
	}))
	r.Get("/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models/flux-dev", nil))

	if len(got) != 1 || got[0] != (observation{http.MethodGet, "/models/{id}", http.StatusTeapot}) {
		t.Fatalf("observations = %+v", got)
	}
	line := buf.String()
	for _, want := range []string{`"route":"/models/{id}"`, `"status":418`, `"request_id":`} {
		if !strings.Contains(line, want) {
			t.Fatalf("access log %q missing %s", line, want)
		}
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{name: "listed origin", allowed: []string{"http://app.example"}, origin: "http://app.example", wantAllow: "http://app.example"},
		{name: "unlisted origin", allowed: []string{"http://app.example"}, origin: "http://evil.example", wantAllow: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.example", wantAllow: "http://any.example"},
		{name: "disabled", allowed: nil, origin: "http://app.example", wantAllow: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("preflight status = %d, want 204", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tc.wantAllow)
			}
		})
	}
}
