// AngelaMos | 2026
// provider_test.go

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/config"
)

var twoMessages = Request{
	Messages: []Message{
		{Role: RoleSystem, Content: "You write ads in English."},
		{Role: RoleUser, Content: "Product: tea"},
	},
	Temperature: 0.7,
	MaxTokens:   256,
}

func TestOpenAI_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Drink tea."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAI(config.GenerationConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-test"})

	res, err := p.Complete(context.Background(), twoMessages)
	require.NoError(t, err)

	assert.Equal(t, "Drink tea.", res.Text)
	assert.Equal(t, 12, res.PromptTokens)
	assert.Equal(t, 3, res.CompletionTokens)

	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAI_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices": []}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices": [`))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := NewOpenAI(config.GenerationConfig{BaseURL: srv.URL})
			_, err := p.Complete(context.Background(), twoMessages)
			assert.ErrorIs(t, err, ErrProviderFailure)
		})
	}
}

func TestOpenAI_RespectsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewOpenAI(config.GenerationConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Complete(ctx, twoMessages)
	require.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGemini_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Drink tea."}]}}],
			"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 4}
		}`))
	}))
	defer srv.Close()

	p, err := NewGemini(context.Background(), config.GenerationConfig{
		APIKey:  "g-test",
		BaseURL: srv.URL + "/",
		Model:   "gemini-test",
	})
	require.NoError(t, err)

	res, err := p.Complete(context.Background(), twoMessages)
	require.NoError(t, err)

	assert.Equal(t, "Drink tea.", res.Text)
	assert.Equal(t, 9, res.PromptTokens)
	assert.Equal(t, 4, res.CompletionTokens)
	assert.Contains(t, body, "systemInstruction")
	assert.Len(t, body["contents"], 1)
}

func TestGemini_ServerErrorIsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`))
	}))
	defer srv.Close()

	p, err := NewGemini(context.Background(), config.GenerationConfig{APIKey: "g-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), twoMessages)
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestNew(t *testing.T) {
	p, err := New(context.Background(), config.GenerationConfig{Provider: "openai", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "openai:m", p.Name())

	_, err = New(context.Background(), config.GenerationConfig{Provider: "gemini"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.GenerationConfig{Provider: "llama"})
	assert.Error(t, err)
}
