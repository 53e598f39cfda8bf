package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
)

func generatorConfig(endpoint string) config.GeneratorConfig {
	return config.GeneratorConfig{
		Temperature:     0.7,
		MaxOutputTokens: 8192,
		Gemini:          config.GeminiConfig{APIKey: "test-key"},
		ChatGPT:         config.ChatGPTConfig{Endpoint: endpoint, APIKey: "sk-test"},
	}
}

func TestGeminiGenerate(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"stories\":"},{"text":"[]}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	c, err := NewGeminiClient(context.Background(), generatorConfig(""),
		option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "hello", "gemini-2.5-flash")
	require.NoError(t, err)
	require.Equal(t, `{"stories":[]}`, text)
	require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)

	genCfg := gotBody["generationConfig"].(map[string]any)
	require.Equal(t, "application/json", genCfg["responseMimeType"])
	require.InDelta(t, 0.7, genCfg["temperature"], 1e-9)
}

func TestGeminiRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	c, err := NewGeminiClient(context.Background(), generatorConfig(""),
		option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "hello", "gemini-2.0-flash")
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGeminiMissingKey(t *testing.T) {
	t.Parallel()

	c, err := NewGeminiClient(context.Background(), config.GeneratorConfig{Gemini: config.GeminiConfig{APIKey: "your_gemini_api_key_here"}})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "hello", "gemini-2.5-flash")
	require.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestChatGPTGenerate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
			Messages       []chatMessage     `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4o-mini", body.Model)
		require.Equal(t, "json_object", body.ResponseFormat["type"])
		require.Len(t, body.Messages, 2)
		require.Equal(t, "prompt", body.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"stories\":[]}"}}]}`))
	}))
	defer server.Close()

	c := NewChatGPTClient(generatorConfig(server.URL), server.Client())
	text, err := c.Generate(context.Background(), "prompt", "gpt-4o-mini")
	require.NoError(t, err)
	require.Equal(t, `{"stories":[]}`, text)
}

func TestChatGPTErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"slow down"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewChatGPTClient(generatorConfig(server.URL), server.Client())
	_, err := c.Generate(context.Background(), "prompt", "gpt-4o-mini")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	cfg := generatorConfig(server.URL)
	cfg.ChatGPT.APIKey = ""
	_, err = NewChatGPTClient(cfg, nil).Generate(context.Background(), "prompt", "gpt-4o-mini")
	require.ErrorIs(t, err, domain.ErrConfigurationMissing)
}
