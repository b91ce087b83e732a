package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/member-qa/internal/resilience"
)

const vikramContext = "Vikram Desai: I own 3 cars including a Tesla. (Date: 2025-01-01)"

func TestAnswer_FlatPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/models/"+DefaultModel, r.URL.Path)

		var in QAInputs
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "How many cars does Vikram Desai have?", in.Question)
		assert.Equal(t, vikramContext, in.Context)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"3","score":0.87,"start":21,"end":22}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	got, err := client.Answer(context.Background(), "How many cars does Vikram Desai have?", vikramContext)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Text)
	assert.InDelta(t, 0.87, got.Score, 0.0001)
	assert.Equal(t, 21, got.Start)
	assert.Equal(t, 22, got.End)
}

func TestAnswer_FallsBackToWrappedPayload(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		if _, ok := raw["inputs"]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"expected inputs"}`))
			return
		}
		w.Write([]byte(`[{"answer":"London","score":0.4}]`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	got, err := client.Answer(context.Background(), "Where is Layla going?", "Layla: London trip")
	require.NoError(t, err)
	assert.Equal(t, "London", got.Text)
	assert.InDelta(t, 0.4, got.Score, 0.0001)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnswer_FallsBackToPipelineEndpoint(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/models/acme/qa" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"answer":"Nobu"}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL), WithModel("acme/qa"))
	got, err := client.Answer(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, "Nobu", got.Text)
	assert.InDelta(t, 1.0, got.Score, 0.0001)
	assert.Equal(t, []string{"/models/acme/qa", "/models/acme/qa", "/pipeline/question-answering/acme/qa"}, paths)
}

func TestAnswer_AllVariantsFailTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	_, err := client.Answer(context.Background(), "q", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(4), calls.Load())
}

func TestAnswer_NoAnswerInResponses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"warnings":["nothing here"]}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	_, err := client.Answer(context.Background(), "q", "c")
	require.ErrorIs(t, err, ErrNoAnswer)
	assert.False(t, resilience.IsTransient(err))
}

func TestAnswer_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := client.Answer(context.Background(), "q", "c")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestAnswer_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"x"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	_, err := client.Answer(ctx, "q", "c")
	require.Error(t, err)
}

func TestAnswer_MinScoreKeepsSearching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		if _, ok := raw["inputs"]; ok {
			w.Write([]byte(`{"answer":"Tesla","score":0.9}`))
			return
		}
		w.Write([]byte(`{"answer":"I own","score":0.05}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL), WithMinScore(0.1))
	got, err := client.Answer(context.Background(), "What car does Vikram drive?", vikramContext)
	require.NoError(t, err)
	assert.Equal(t, "Tesla", got.Text)
	assert.InDelta(t, 0.9, got.Score, 0.0001)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnswer_MinScoreReturnsBestLowAnswer(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/pipeline/question-answering/"+DefaultModel {
			w.Write([]byte(`{"answer":"3","score":0.08}`))
			return
		}
		w.Write([]byte(`{"answer":"cars","score":0.02}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL), WithMinScore(0.1))
	got, err := client.Answer(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, "3", got.Text)
	assert.InDelta(t, 0.08, got.Score, 0.0001)
	assert.Equal(t, int32(4), calls.Load())
}

func TestAnswer_WithoutMinScoreStopsAtFirstAnswer(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"answer":"cars","score":0.0}`))
	}))
	defer srv.Close()

	client := NewClient("hf-key", WithBaseURL(srv.URL))
	got, err := client.Answer(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, "cars", got.Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithTimeout_LeavesCallerClientUntouched(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Timeout: time.Minute}
	c := NewClient("hf-key", WithHTTPClient(hc), WithTimeout(time.Second)).(*httpClient)

	assert.Equal(t, time.Minute, hc.Timeout)
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, hc, c.http)
}

func TestWithHTTPClient_KeepsCallerTimeout(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Timeout: time.Minute}
	c := NewClient("hf-key", WithHTTPClient(hc)).(*httpClient)
	assert.Same(t, hc, c.http)
	assert.Equal(t, time.Minute, c.http.Timeout)
}

func TestWithTimeout_NilHTTPClient(t *testing.T) {
	t.Parallel()

	var c *httpClient
	require.NotPanics(t, func() {
		c = NewClient("hf-key", WithHTTPClient(nil), WithTimeout(time.Second)).(*httpClient)
	})
	require.NotNil(t, c.http)
	assert.Equal(t, time.Second, c.http.Timeout)
}

func TestParseAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		text  string
		score float64
		ok    bool
	}{
		{name: "flat with score", body: `{"answer":"3","score":0.5}`, text: "3", score: 0.5, ok: true},
		{name: "flat without score", body: `{"answer":"3"}`, text: "3", score: 1.0, ok: true},
		{name: "text field", body: `{"text":"in March"}`, text: "in March", score: 1.0, ok: true},
		{name: "text with error", body: `{"text":"x","error":"boom"}`},
		{name: "error only", body: `{"error":"Model loading","estimated_time":20}`},
		{name: "list", body: `[{"answer":"Tesla","score":0.2}]`, text: "Tesla", score: 0.2, ok: true},
		{name: "list without answer", body: `[{"label":"x"}]`},
		{name: "empty list", body: `[]`},
		{name: "empty answer", body: `{"answer":""}`},
		{name: "non-string answer", body: `{"answer":42}`},
		{name: "not json", body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseAnswer([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				require.NotNil(t, got)
				assert.Equal(t, tt.text, got.Text)
				assert.InDelta(t, tt.score, got.Score, 0.0001)
			}
		})
	}
}
