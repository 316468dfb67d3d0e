package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
	"github.com/daochai/teasommelier/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRecommenderMetrics()
	os.Exit(m.Run())
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		resp := openaiEmbeddingResponse{
			Object: "list",
			Model:  "test-model",
		}
		resp.Data = append(resp.Data, struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}{
			Object:    "embedding",
			Embedding: expectedVec,
			Index:     0,
		})
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
		Logger:     zap.NewNop(),
	})

	result, err := emb.Embed(context.Background(), "улун с ванилью")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}

	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, expected 10", result.TotalTokens)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "пуэр")
	if err == nil {
		t.Fatal("expected error for empty data")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		message  string
		sentinel error
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded", domain.ErrRateLimited},
		{"payment required", http.StatusPaymentRequired, "", "payment required", domain.ErrEmbeddingQuotaExceeded},
		{"quota code on other status", http.StatusForbidden, "insufficient_quota", "quota exhausted", domain.ErrEmbeddingQuotaExceeded},
		{"server error", http.StatusInternalServerError, "server_error", "boom", domain.ErrEmbeddingProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"message": tt.message,
						"type":    "api_error",
						"code":    tt.code,
					},
				})
			}))
			defer server.Close()

			emb := NewEmbedder(&EmbedderConfig{
				APIKey:  "test-key",
				BaseURL: server.URL,
				Model:   "test-model",
				Logger:  zap.NewNop(),
			})

			_, err := emb.Embed(context.Background(), "зеленый чай")
			if err == nil {
				t.Fatalf("expected error for %d response", tt.status)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestParseAPIError_SentinelMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			"request error 429",
			&openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Body: []byte("slow down")},
			domain.ErrRateLimited,
		},
		{
			"request error 402",
			&openai.RequestError{HTTPStatusCode: http.StatusPaymentRequired, Body: []byte("pay up")},
			domain.ErrEmbeddingQuotaExceeded,
		},
		{
			"api error 429",
			&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "rate limit exceeded"},
			domain.ErrRateLimited,
		},
		{
			"api error insufficient_quota",
			&openai.APIError{HTTPStatusCode: http.StatusPaymentRequired, Code: "insufficient_quota", Message: "quota exhausted"},
			domain.ErrEmbeddingQuotaExceeded,
		},
		{
			"api error 500 falls back",
			&openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"},
			domain.ErrEmbeddingProviderError,
		},
		{
			"plain error falls back",
			errors.New("connection refused"),
			domain.ErrEmbeddingProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAPIError(tt.err, domain.ErrEmbeddingProviderError)
			if !errors.Is(got, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, got)
			}
		})
	}
}
