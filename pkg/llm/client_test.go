package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmarinova/cvgate/pkg/config"
	"github.com/dmarinova/cvgate/pkg/models"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "deepseek-chat",
		Temperature: 0.2,
		MaxTokens:   350,
		Timeout:     config.Duration(5 * time.Second),
	}
}

func TestComplete(t *testing.T) {
	var gotReq models.ChatCompletionRequest
	var gotAuth string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			Choices: []models.Choice{
				{Message: models.ChatMessage{Role: "assistant", Content: "  She has a PhD.  "}},
			},
		})
	}))
	defer upstream.Close()

	c := New(testConfig(upstream.URL))
	got, err := c.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "She has a PhD." {
		t.Errorf("answer = %q, want trimmed content", got)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "deepseek-chat" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.2 {
		t.Errorf("temperature = %v", gotReq.Temperature)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens != 350 {
		t.Errorf("max_tokens = %v", gotReq.MaxTokens)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient balance"}`, http.StatusPaymentRequired)
	}))
	defer upstream.Close()

	c := New(testConfig(upstream.URL))
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{})
	}))
	defer upstream.Close()

	c := New(testConfig(upstream.URL))
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected an error for an empty choices list")
	}
}

func TestConfigured(t *testing.T) {
	cfg := testConfig("http://localhost")
	if !New(cfg).Configured() {
		t.Error("client with a key should report configured")
	}
	cfg.APIKey = ""
	if New(cfg).Configured() {
		t.Error("client without a key should report unconfigured")
	}
}
