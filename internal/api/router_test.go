package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/member-qa/internal/feed"
	"github.com/sells-group/member-qa/internal/qa"
)

type stubAsker struct {
	answer string
	err    error
	panic  any
	got    string
}

func (s *stubAsker) Ask(_ context.Context, question string) (string, error) {
	s.got = question
	if s.panic != nil {
		panic(s.panic)
	}
	return s.answer, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestIndex(t *testing.T) {
	rec := do(t, NewRouter(&stubAsker{}, Options{}), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"service": "Member QA System",
		"version": "1.0.0",
		"endpoints": {
			"/ask": "POST - Ask a question about member data",
			"/health": "GET - Health check"
		}
	}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(&stubAsker{}, Options{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestAsk_OK(t *testing.T) {
	svc := &stubAsker{answer: "In March."}
	rec := do(t, NewRouter(svc, Options{}), http.MethodPost, "/ask", `{"question":"When is Layla going to London?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"In March."}`, rec.Body.String())
	assert.Equal(t, "When is Layla going to London?", svc.got)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "empty question",
			body:       `{"question":"  "}`,
			err:        qa.ErrEmptyQuestion,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Question cannot be empty",
		},
		{
			name:       "feed failure",
			body:       `{"question":"Who?"}`,
			err:        &feed.FetchError{Err: errors.New("status 503")},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Failed to fetch messages: status 503",
		},
		{
			name:       "wrapped feed failure",
			body:       `{"question":"Who?"}`,
			err:        eris.Wrap(&feed.FetchError{Err: errors.New("timeout")}, "qa: ask"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Failed to fetch messages: timeout",
		},
		{
			name:       "unexpected",
			body:       `{"question":"Who?"}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Error processing question: boom",
		},
		{
			name:       "invalid body",
			body:       `{"question":`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewRouter(&stubAsker{err: tt.err}, Options{}), http.MethodPost, "/ask", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, decode(t, rec)["detail"])
		})
	}
}

func TestAsk_PanicRecovered(t *testing.T) {
	rec := do(t, NewRouter(&stubAsker{panic: "nil map"}, Options{}), http.MethodPost, "/ask", `{"question":"Who?"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing question: nil map", decode(t, rec)["detail"])
}

func TestRequestID(t *testing.T) {
	h := NewRouter(&stubAsker{}, Options{})

	rec := do(t, h, http.MethodGet, "/health", "")
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestNotFound(t *testing.T) {
	rec := do(t, NewRouter(&stubAsker{}, Options{}), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["detail"])

	rec = do(t, NewRouter(&stubAsker{}, Options{}), http.MethodGet, "/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewRouter(&stubAsker{}, Options{CORSOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_CredentialsOffByDefault(t *testing.T) {
	preflight := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(NewRouter(&stubAsker{}, Options{CORSOrigins: []string{"https://app.example.com"}}))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight(NewRouter(&stubAsker{}, Options{
		CORSOrigins:      []string{"https://app.example.com"},
		AllowCredentials: true,
	}))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(&stubAsker{answer: "ok"}, Options{RateLimitQPS: 0.001, RateLimitBurst: 2})

	for range 2 {
		rec := do(t, h, http.MethodPost, "/ask", `{"question":"Who?"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/ask", `{"question":"Who?"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decode(t, rec)["detail"])

	// Other clients and other routes are unaffected.
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"Who?"}`))
	req.RemoteAddr = "198.51.100.7:999"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestRateLimitOffByDefault(t *testing.T) {
	h := NewRouter(&stubAsker{answer: "ok"}, Options{})
	for range 50 {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/ask", `{"question":"Who?"}`).Code)
	}
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Now()
	l := newIPRateLimiter(1, 1)
	l.nowFunc = func() time.Time { return now }
	l.lastSweep = now

	first := l.get("192.0.2.1")
	l.get("192.0.2.2")
	require.Len(t, l.limiters, 2)

	// Within the TTL the same bucket is reused.
	now = now.Add(time.Minute)
	assert.Same(t, first, l.get("192.0.2.1"))

	// Past the TTL for 192.0.2.2 only; 192.0.2.1 was seen a minute later.
	now = now.Add(limiterIdleTTL - 30*time.Second)
	l.get("192.0.2.3")
	assert.Contains(t, l.limiters, "192.0.2.1")
	assert.NotContains(t, l.limiters, "192.0.2.2")
	assert.Contains(t, l.limiters, "192.0.2.3")

	now = now.Add(2 * limiterIdleTTL)
	l.get("192.0.2.4")
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "192.0.2.4")
}
