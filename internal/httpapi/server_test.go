package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minervaai/minerva/internal/config"
	"github.com/minervaai/minerva/internal/pipeline"
)

type fakeAsker struct {
	lastID          pipeline.Identity
	lastQuestion    string
	lastWithMetrics bool
	result          pipeline.Result
	err             error
}

func (f *fakeAsker) Ask(_ context.Context, id pipeline.Identity, question string, withMetrics bool) (pipeline.Result, error) {
	f.lastID = id
	f.lastQuestion = question
	f.lastWithMetrics = withMetrics
	return f.result, f.err
}

func newTestServer(asker Asker) *Server {
	return New(config.Config{BindAddr: ":0"}, asker, nil)
}

func doAsk(t *testing.T, srv *Server, path, user, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(headerUser, user)
	}
	if role != "" {
		req.Header.Set(headerRole, role)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestAskReturnsAnswer(t *testing.T) {
	asker := &fakeAsker{result: pipeline.Result{Answer: "the badge policy is on the wiki"}}
	srv := newTestServer(asker)

	rec := doAsk(t, srv, "/v1/ask", "u-1", "employee", `{"question":"where is the badge policy?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["answer"] != "the badge policy is on the wiki" {
		t.Fatalf("answer = %v", out["answer"])
	}
	if _, ok := out["latency"]; ok {
		t.Fatalf("plain ask must not carry latency: %v", out)
	}
	if asker.lastWithMetrics {
		t.Fatalf("plain ask requested metrics")
	}
	if asker.lastID.UserID != "u-1" || asker.lastID.Role != "employee" {
		t.Fatalf("identity = %+v", asker.lastID)
	}
}

func TestAskWithMetricsMergesPayload(t *testing.T) {
	retrieval := 0.12
	asker := &fakeAsker{result: pipeline.Result{
		Answer: "ok",
		Metrics: &pipeline.Metrics{
			Latency: pipeline.Latency{Total: 1.234, Embedding: 0.05, Retrieval: &retrieval},
			Usage:   pipeline.Usage{EmbeddingTokens: 7, LLMInputTokens: 100, LLMOutputTokens: 20, RerankerCalls: 1},
			Cache:   pipeline.CacheInfo{SemanticCacheHit: false},
		},
	}}
	srv := newTestServer(asker)

	rec := doAsk(t, srv, "/v1/ask_with_metrics", "u-1", "manager", `{"question":"q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !asker.lastWithMetrics {
		t.Fatalf("metrics ask did not request metrics")
	}

	var out struct {
		Answer  string              `json:"answer"`
		Latency *pipeline.Latency   `json:"latency"`
		Usage   *pipeline.Usage     `json:"usage"`
		Cache   *pipeline.CacheInfo `json:"cache"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Latency == nil || out.Latency.Total != 1.234 {
		t.Fatalf("latency = %+v", out.Latency)
	}
	if out.Usage == nil || out.Usage.LLMInputTokens != 100 {
		t.Fatalf("usage = %+v", out.Usage)
	}
	if out.Cache == nil || out.Cache.SemanticCacheHit {
		t.Fatalf("cache = %+v", out.Cache)
	}
}

func TestAskRejectsUnknownRole(t *testing.T) {
	asker := &fakeAsker{result: pipeline.Result{Answer: "never"}}
	srv := newTestServer(asker)

	for _, tc := range []struct{ user, role string }{
		{"u-1", "intern"},
		{"u-1", ""},
		{"", "employee"},
	} {
		rec := doAsk(t, srv, "/v1/ask", tc.user, tc.role, `{"question":"q"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("user=%q role=%q status = %d", tc.user, tc.role, rec.Code)
		}
	}
	if asker.lastQuestion != "" {
		t.Fatalf("asker was reached with invalid identity")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(&fakeAsker{})

	rec := doAsk(t, srv, "/v1/ask", "u-1", "hr", `{"question":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAskMapsErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(&fakeAsker{err: pipeline.ErrNotConfigured})
		rec := doAsk(t, srv, "/v1/ask", "u-1", "employee", `{"question":"q"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})
	t.Run("upstream failure", func(t *testing.T) {
		srv := newTestServer(&fakeAsker{err: errors.New("embed: timeout")})
		rec := doAsk(t, srv, "/v1/ask", "u-1", "employee", `{"question":"q"}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "timeout") {
			t.Fatalf("upstream detail leaked to client: %s", rec.Body.String())
		}
	})
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&fakeAsker{result: pipeline.Result{Answer: "a"}})

	rec := doAsk(t, srv, "/v1/ask", "u-1", "employee", `{"question":"q"}`)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("response missing request id")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`))
	req.Header.Set(headerUser, "u-1")
	req.Header.Set(headerRole, "employee")
	req.Header.Set("X-Request-Id", "req-42")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id not propagated, got %q", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&fakeAsker{})
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestPerfLatencyWithoutMetrics(t *testing.T) {
	srv := newTestServer(&fakeAsker{})
	req := httptest.NewRequest(http.MethodGet, "/v1/perf/latency", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}
