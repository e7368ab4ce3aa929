package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key-7f3a"

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{APIKey: testKey, BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

type generateBody struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func TestGenerate(t *testing.T) {
	t.Run("returns first candidate text", func(t *testing.T) {
		var got generateBody
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1beta/models/gemini-1.5-pro-002:generateContent", r.URL.Path)
			assert.Equal(t, testKey, r.Header.Get("x-goog-api-key"))
			assert.Empty(t, r.URL.Query().Get("key"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"status\":"},{"text":"\"VERIFIED\"}"}]}}]}`))
		})

		text, err := client.Generate(context.Background(), "gemini-1.5-pro-002", "check this")
		require.NoError(t, err)
		assert.Equal(t, `{"status":"VERIFIED"}`, text)
		require.Len(t, got.Contents, 1)
		require.Len(t, got.Contents[0].Parts, 1)
		assert.Equal(t, "check this", got.Contents[0].Parts[0].Text)
		assert.InDelta(t, 0.1, got.GenerationConfig.Temperature, 1e-6)
		assert.Equal(t, 2048, got.GenerationConfig.MaxOutputTokens)
	})

	t.Run("empty model uses default", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1beta/models/"+DefaultModel+":generateContent", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
		})
		_, err := client.Generate(context.Background(), "", "hi")
		require.NoError(t, err)
	})

	t.Run("quota errors are rate limited", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
		})
		_, err := client.Generate(context.Background(), "m", "hi")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.True(t, apiErr.RateLimited())
		assert.Equal(t, "Quota exceeded", apiErr.Message)
	})

	t.Run("server errors are not rate limited", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"upstream exploded","status":"INTERNAL"}}`))
		})
		_, err := client.Generate(context.Background(), "m", "hi")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.False(t, apiErr.RateLimited())
		assert.Equal(t, 500, apiErr.StatusCode)
	})

	t.Run("blocked prompt is an empty response", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		})
		_, err := client.Generate(context.Background(), "m", "hi")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("transport errors never carry the api key", func(t *testing.T) {
		client, err := New(context.Background(), Config{APIKey: "SUPERSECRETKEY", BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "", "hi")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	})

	t.Run("missing key fails without a request", func(t *testing.T) {
		client, err := New(context.Background(), Config{})
		require.NoError(t, err)
		assert.False(t, client.Configured())
		_, err = client.Generate(context.Background(), "m", "hi")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
