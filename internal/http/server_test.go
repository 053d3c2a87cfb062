package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
	"jizhang/internal/extraction"
	"jizhang/internal/log"
	"jizhang/internal/middleware/ratelimit"
	"jizhang/internal/services"
	"jizhang/internal/stats"
	"jizhang/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// scriptedClassifier answers by keyword so tests can drive every outcome.
type scriptedClassifier struct{}

func (scriptedClassifier) Classify(_ context.Context, text string) (extraction.Outcome, error) {
	switch {
	case strings.Contains(text, "午饭"):
		return extraction.Valid{Category: "餐饮", Amount: decimal.NewFromInt(35), Description: "午饭"}, nil
	case strings.Contains(text, "打车"):
		return extraction.Valid{Category: "交通", Amount: decimal.RequireFromString("12.5"), Description: "打车"}, nil
	case strings.Contains(text, "boom"):
		return nil, errors.New("provider unavailable")
	default:
		return extraction.Invalid{Reason: extraction.ReasonNotExpense}, nil
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := log.New(log.Config{Output: &bytes.Buffer{}})

	clock := testNow
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	chat := services.NewChatService(store, scriptedClassifier{},
		services.WithClock(now),
		services.WithLogger(logger))
	statistics := services.NewStatisticsService(stats.NewAggregator(store), store, stats.DefaultOptions(),
		func() time.Time { return testNow.Add(time.Hour) }, logger)

	srv := NewServer(":0", chat, statistics, store, logger, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("%s content type = %q", path, ct)
		}
	}

	srv.pinger = failingPinger{}
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("request id = %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodGet, "/api/chat", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/chat status=%d, want 405", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/stats", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/stats status=%d, want 405", rr.Code)
	}
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	cats := decode[[]categoryResponse](t, rr)
	if len(cats) != len(core.Categories) {
		t.Fatalf("got %d categories, want %d", len(cats), len(core.Categories))
	}
	if cats[0].Label != "餐饮" || cats[0].Icon != core.IconFood {
		t.Errorf("first = %+v", cats[0])
	}
	if last := cats[len(cats)-1]; last.Label != core.CategoryOther || last.Icon != core.IconOther {
		t.Errorf("last = %+v", last)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimit: ratelimit.Config{Requests: 2, Window: time.Minute}})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/chat", `{"text":"你好"}`); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/chat", `{"text":"你好"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third POST status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if decode[errorResponse](t, rr).Error == "" {
		t.Error("expected JSON error body")
	}

	if rr := do(t, srv, http.MethodGet, "/api/messages", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	do(t, srv, http.MethodPost, "/api/chat", `{"text":"午饭35"}`)
	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"chat_submissions_total 1", "expenses_recorded_total 1", "# TYPE uptime_seconds gauge"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}
