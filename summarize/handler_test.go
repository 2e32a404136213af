package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"summarize-gateway/middleware/origin"
	"summarize-gateway/middleware/ratelimit"
	rlapp "summarize-gateway/middleware/ratelimit/application"
	"summarize-gateway/middleware/ratelimit/infra"
	"summarize-gateway/summarize/application"

	"github.com/rs/zerolog"
)

type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	query string
}

func (g *stubGenerator) Generate(_ context.Context, _, query string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.query = query
	return g.text, g.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type testEnv struct {
	handler http.Handler
	gen     *stubGenerator
	stats   *infra.MemoryStatsStore
}

func newTestEnv(t *testing.T, limit int, gen *stubGenerator) testEnv {
	t.Helper()
	clock := fixedClock{t: time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC)}
	store := infra.NewWindowStore(limit, time.Minute)
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	h := NewHandler(Options{
		Service: application.Service{
			Limiter:   rlapp.Service{Store: store, Limit: limit, Window: time.Minute},
			Generator: gen,
			Clock:     clock,
		},
		KeyFn:               ratelimit.DefaultKeyFunc("", true),
		Stats:               stats,
		MemoryStats:         stats,
		AddRateLimitHeaders: true,
		Clock:               clock,
		Logger:              zerolog.Nop(),
	})
	return testEnv{
		handler: h.Router(RouterOptions{
			Origin:         origin.New(origin.Options{AllowedOrigins: []string{"https://app.example"}}),
			ConcurrencyMax: 4,
		}),
		gen:   gen,
		stats: stats,
	}
}

const validBody = `{"question":"What did the study find?","context":{"Title":"Bone loss in mice","Abstract":null,"Link":"https://example.org/1"}}`

func post(h http.Handler, body string, mutate ...func(r *http.Request)) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "http://api/api/summarize", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = "10.0.0.1:5555"
	for _, m := range mutate {
		m(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected JSON body, got %q: %v", w.Body.String(), err)
	}
	return out
}

func TestSummarize_ReturnsContent(t *testing.T) {
	env := newTestEnv(t, 3, &stubGenerator{text: "Summary text"})

	w := post(env.handler, validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["content"]; got != "Summary text" {
		t.Fatalf("expected content, got %q", got)
	}
	if env.gen.query != "What did the study find?" {
		t.Fatalf("expected question to reach generator, got %q", env.gen.query)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining=2, got %q", got)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestSummarize_AliasRoute(t *testing.T) {
	env := newTestEnv(t, 3, &stubGenerator{text: "ok"})

	r := httptest.NewRequest(http.MethodPost, "http://api/summarize", strings.NewReader(validBody))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on alias, got %d", w.Code)
	}
}

func TestSummarize_RateLimited(t *testing.T) {
	env := newTestEnv(t, 2, &stubGenerator{text: "ok"})

	for i := 0; i < 2; i++ {
		if w := post(env.handler, validBody); w.Code != http.StatusOK {
			t.Fatalf("expected 200 on request %d, got %d", i+1, w.Code)
		}
	}

	w := post(env.handler, validBody)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	detail := decodeBody(t, w)["detail"]
	if detail != "rate limit exceeded: max 2 requests per 60 seconds" {
		t.Fatalf("unexpected detail %q", detail)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After=60, got %q", got)
	}
	if env.gen.calls != 2 {
		t.Fatalf("expected generator not to be called when limited, got %d calls", env.gen.calls)
	}

	total := env.stats.Total()
	if total.Admitted != 2 || total.Rejected != 1 {
		t.Fatalf("unexpected stats %+v", total)
	}
}

func TestSummarize_ClientsAreIsolatedByForwardedFor(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})
	from := func(ip string) func(r *http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip+", 172.16.0.1") }
	}

	if w := post(env.handler, validBody, from("1.1.1.1")); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for first client, got %d", w.Code)
	}
	if w := post(env.handler, validBody, from("1.1.1.1")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for first client, got %d", w.Code)
	}
	if w := post(env.handler, validBody, from("2.2.2.2")); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for second client, got %d", w.Code)
	}
}

func TestSummarize_GeneratorFailure(t *testing.T) {
	env := newTestEnv(t, 3, &stubGenerator{err: errors.New("provider status 503: overloaded")})

	w := post(env.handler, validBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	detail := decodeBody(t, w)["detail"]
	if !strings.Contains(detail, "overloaded") {
		t.Fatalf("expected underlying failure in detail, got %q", detail)
	}
	if got := env.stats.Total(); got.Failed != 1 || got.Admitted != 0 || got.Rejected != 0 {
		t.Fatalf("expected a single failed outcome, got %+v", got)
	}
}

func TestSummarize_InvalidPayloadIsRejectedBeforeLimiter(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})

	for _, body := range []string{`{"question": "  "}`, `not json`, ``, `{"question":"q"} {"x":1}`} {
		w := post(env.handler, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, w.Code)
		}
		if decodeBody(t, w)["detail"] == "" {
			t.Fatalf("expected detail for %q", body)
		}
	}

	// nenhuma das anteriores consumiu a vaga
	if w := post(env.handler, validBody); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after invalid requests, got %d", w.Code)
	}
}

func TestSummarize_ForeignOriginForbidden(t *testing.T) {
	env := newTestEnv(t, 3, &stubGenerator{text: "ok"})

	w := post(env.handler, validBody, func(r *http.Request) { r.Header.Set("Origin", "https://evil.example") })
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if env.gen.calls != 0 {
		t.Fatalf("expected generator not to be called")
	}
}

func TestSummarize_PreflightFromAllowedOrigin(t *testing.T) {
	env := newTestEnv(t, 3, &stubGenerator{text: "ok"})

	r := httptest.NewRequest(http.MethodOptions, "http://api/api/summarize", nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("expected CORS origin header, got %q", got)
	}
}

func TestHealth_IgnoresOriginAndLimiter(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://api/health", nil)
		r.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if got := decodeBody(t, w)["status"]; got != "ok" {
			t.Fatalf("expected status ok, got %q", got)
		}
	}
}

func TestStats_ReportsCounters(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})
	post(env.handler, validBody)
	post(env.handler, validBody)

	r := httptest.NewRequest(http.MethodGet, "http://api/api/stats", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total.Admitted != 1 || resp.Total.Rejected != 1 {
		t.Fatalf("unexpected totals %+v", resp.Total)
	}
	if resp.ByKey["10.0.0.1"].Rejected != 1 {
		t.Fatalf("expected per-key counters, got %+v", resp.ByKey)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodOptions} {
		r := httptest.NewRequest(method, "http://api/nope", nil)
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s /nope: expected 404, got %d", method, w.Code)
		}
		if decodeBody(t, w)["detail"] == "" {
			t.Fatalf("%s /nope: expected JSON detail", method)
		}
	}
}

func TestKnownRouteWrongMethodIs405(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})

	r := httptest.NewRequest(http.MethodGet, "http://api/api/summarize", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestSummarize_PreflightOnAliasAndWithoutOrigin(t *testing.T) {
	env := newTestEnv(t, 1, &stubGenerator{text: "ok"})

	r := httptest.NewRequest(http.MethodOptions, "http://api/summarize", nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on alias, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodOptions, "http://api/api/summarize", nil)
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without Origin, got %d", w.Code)
	}
	if env.gen.calls != 0 {
		t.Fatalf("expected preflight not to reach the generator")
	}
}
