package ollama

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
)

func TestEmbeddingService_Embed(t *testing.T) {
	var gotModel, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		gotPrompt = req.Prompt

		json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL, Model: "test-model"})

	embedding, err := service.Embed(context.Background(), "hello world")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embedding)
	assert.Equal(t, "test-model", gotModel)
	assert.Equal(t, "hello world", gotPrompt)
}

func TestEmbeddingService_Embed_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "model loading", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{1}})
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL})
	service.backoff = time.Millisecond

	embedding, err := service.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{1}, embedding)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_Embed_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "permanently broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL})
	service.backoff = time.Millisecond

	_, err := service.Embed(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestEmbeddingService_Embed_ContextCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := service.Embed(ctx, "text")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.5}})
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL})

	embeddings, err := service.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, embeddings, 3)
	for _, e := range embeddings {
		assert.Equal(t, []float32{0.5}, e)
	}
}

func TestEmbeddingService_Defaults(t *testing.T) {
	service := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, service.ModelName())
	assert.Equal(t, DefaultDimensions, service.Dimensions())
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewEmbeddingService(Config{BaseURL: server.URL})

	assert.NoError(t, service.Ping(context.Background()))
}

func TestEmbeddingService_Ping_Unreachable(t *testing.T) {
	service := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	assert.Error(t, service.Ping(context.Background()))
}
