package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bisicus/segreteriacanti-api/internal/loader"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
)

func TestRequestContextAssignsID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var seen string
	h := RequestContext(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := reqctx.RequestID(r.Context())
		if !ok {
			t.Fatalf("expected request id in context")
		}
		seen = id
		reqctx.Logger(r.Context()).Info("inside")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/songs", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("response header should echo the id")
	}
	out := buf.String()
	if !strings.Contains(out, "request_id="+seen) || !strings.Contains(out, "endpoint=/api/v1/songs") {
		t.Fatalf("logger missing request attributes: %q", out)
	}
}

func TestRequestContextReusesValidID(t *testing.T) {
	incoming := uuid.NewString()
	h := RequestContext(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != incoming {
		t.Fatalf("expected incoming id reused")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) == "not a uuid" {
		t.Fatalf("malformed id should be replaced")
	}
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})
	h := Chain(inner, RequestContext(logger), LoggingMiddleware)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/songs/9", nil))

	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "level=WARN") || !strings.Contains(out, "bytes=4") {
		t.Fatalf("unexpected access log: %q", out)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestDataLoaderMiddleware(t *testing.T) {
	var got *loader.Loaders
	h := DataLoaderMiddleware(loader.Sources{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = loader.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == nil || got.Songs == nil {
		t.Fatalf("expected loaders in context")
	}
}
