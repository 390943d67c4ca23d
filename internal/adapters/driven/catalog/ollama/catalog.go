// Package ollama provides model discovery against the local Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bruncanepa/murmur-brain/internal/core/ports/driven"
)

// Ensure ModelCatalog implements the interface.
var _ driven.ModelCatalog = (*ModelCatalog)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 10 * time.Second
)

// embeddingNameHints mark models that only produce embeddings and
// cannot chat.
var embeddingNameHints = []string{"embed", "minilm", "bge-"}

// Config holds configuration for the Ollama model catalog.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration
}

// ModelCatalog lists locally installed Ollama models via /api/tags.
type ModelCatalog struct {
	client  *http.Client
	baseURL string
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Size    int64  `json:"size"`
		Details struct {
			ParameterSize string `json:"parameter_size"`
		} `json:"details"`
	} `json:"models"`
}

// NewModelCatalog creates a new Ollama model catalog.
func NewModelCatalog(cfg Config) *ModelCatalog {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ModelCatalog{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}
}

// Search returns installed models matching the query substring and
// category. Empty query or category matches everything.
func (c *ModelCatalog) Search(ctx context.Context, query, category string) ([]driven.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))

	models := make([]driven.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		info := driven.ModelInfo{
			Name:          m.Name,
			Category:      categorize(m.Name),
			SizeBytes:     m.Size,
			ParameterSize: m.Details.ParameterSize,
		}
		if query != "" && !strings.Contains(strings.ToLower(info.Name), query) {
			continue
		}
		if category != "" && info.Category != category {
			continue
		}
		models = append(models, info)
	}

	return models, nil
}

// categorize guesses a model's category from its name. Ollama's API does
// not expose capabilities, so naming convention is the best signal.
func categorize(name string) string {
	lower := strings.ToLower(name)
	for _, hint := range embeddingNameHints {
		if strings.Contains(lower, hint) {
			return driven.ModelCategoryEmbedding
		}
	}
	return driven.ModelCategoryChat
}
