package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExecuteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)

		json.NewEncoder(w).Encode(chatResponse{
			Model: "gpt-4",
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "hi there"}}},
		})
	}))
	defer srv.Close()

	h := &HTTP{BackendName: "openai", BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}
	resp, err := h.Execute(Request{Prompt: "hello", SystemPrompt: "be nice"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.Equal(t, "gpt-4", resp.Model)
}

func TestHTTPExecuteAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	h := &HTTP{BackendName: "openai", BaseURL: srv.URL, Timeout: time.Second}
	_, err := h.Execute(Request{Prompt: "hi"})
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "auth", string(be.Kind))
}

func TestHTTPExecuteRateLimitParsesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after": 2}`))
	}))
	defer srv.Close()

	h := &HTTP{BackendName: "openai", BaseURL: srv.URL, Timeout: time.Second}
	_, err := h.Execute(Request{Prompt: "hi"})
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "rate_limit", string(be.Kind))
	d, ok := be.RetryAfterDuration()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestHTTPExecuteServerErrorIsNetworkKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &HTTP{BackendName: "openai", BaseURL: srv.URL, Timeout: time.Second}
	_, err := h.Execute(Request{Prompt: "hi"})
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "network", string(be.Kind))
}

func TestHTTPIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := &HTTP{BaseURL: srv.URL}
	assert.True(t, h.IsAvailable())
}

func TestHTTPDefaultModel(t *testing.T) {
	h := &HTTP{}
	assert.Equal(t, "gpt-4", h.model())
}
