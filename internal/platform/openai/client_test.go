package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/platform/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func outputBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"output": []any{map[string]any{
			"type": "message",
			"role": "assistant",
			"content": []any{map[string]any{
				"type": "output_text",
				"text": text,
			}},
		}},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, retries int) Client {
	t.Helper()
	temp := 0.2
	c, err := NewClient(logger.Nop(), Config{
		APIKey:      "sk-test",
		BaseURL:     url,
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxRetries:  retries,
		Temperature: &temp,
	})
	require.NoError(t, err)
	return c
}

func TestGenerateJSONSendsStrictSchema(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(outputBody(`{"is_safe":true}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	obj, err := c.GenerateJSON(context.Background(), "sys", "user", "guardrail_input_v1", map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.Equal(t, true, obj["is_safe"])

	format := got["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "guardrail_input_v1", format["name"])
	assert.Equal(t, true, format["strict"])
	assert.Equal(t, "test-model", got["model"])
}

func TestRetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(outputBody("hello")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	text, err := c.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestNonRetryableStatusSurfaces(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.GenerateText(context.Background(), "sys", "user")
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, httpx.StatusCode(err))
	assert.False(t, httpx.IsRetryableError(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTemperatureFallback(t *testing.T) {
	var withTemp, withoutTemp int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["temperature"]; ok {
			atomic.AddInt32(&withTemp, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`))
			return
		}
		atomic.AddInt32(&withoutTemp, 1)
		_, _ = w.Write([]byte(outputBody("ok")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	for i := 0; i < 2; i++ {
		text, err := c.GenerateText(context.Background(), "sys", "user")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&withTemp))
	assert.EqualValues(t, 2, atomic.LoadInt32(&withoutTemp))
}

func TestRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"no"}]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GenerateText(context.Background(), "sys", "user")
	var re *RefusalError
	require.True(t, errors.As(err, &re))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{})
	require.Error(t, err)
}
