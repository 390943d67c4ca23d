// Package file provides TOML-backed application settings.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultDirName is the per-user directory holding settings and data.
const DefaultDirName = ".murmur-brain"

// Settings holds the full application configuration.
type Settings struct {
	// DataDir is where the database and index snapshot live.
	DataDir string `toml:"data_dir"`

	Ollama    OllamaSettings    `toml:"ollama"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Ingest    IngestSettings    `toml:"ingest"`
}

// OllamaSettings configures the local model server connection.
type OllamaSettings struct {
	BaseURL        string `toml:"base_url"`
	EmbedModel     string `toml:"embed_model"`
	ChatModel      string `toml:"chat_model"`
	EmbedDimension int    `toml:"embed_dimension"`
}

// RetrievalSettings configures search and ranking behaviour.
type RetrievalSettings struct {
	TopK int `toml:"top_k"`

	// Adaptive threshold breakpoints by query word count.
	ShortQueryWords     int     `toml:"short_query_words"`
	MediumQueryWords    int     `toml:"medium_query_words"`
	ShortThreshold      float64 `toml:"short_threshold"`
	MediumThreshold     float64 `toml:"medium_threshold"`
	LongThreshold       float64 `toml:"long_threshold"`
	QualityFloor        float64 `toml:"quality_floor"`
	ChatContextChunks   int     `toml:"chat_context_chunks"`
	EmbedCallsPerSecond float64 `toml:"embed_calls_per_second"`
}

// IngestSettings configures document ingestion.
type IngestSettings struct {
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	WatchDir     string `toml:"watch_dir"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Ollama: OllamaSettings{
			BaseURL:        "http://localhost:11434",
			EmbedModel:     "nomic-embed-text",
			ChatModel:      "llama3.2",
			EmbedDimension: 768,
		},
		Retrieval: RetrievalSettings{
			TopK:                10,
			ShortQueryWords:     3,
			MediumQueryWords:    6,
			ShortThreshold:      0.25,
			MediumThreshold:     0.35,
			LongThreshold:       0.45,
			QualityFloor:        0.5,
			ChatContextChunks:   5,
			EmbedCallsPerSecond: 10,
		},
		Ingest: IngestSettings{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
	}
}

// LoadSettings reads settings from the TOML file at path, filling any
// missing fields with defaults. A missing file yields pure defaults.
// If path is empty, ~/.murmur-brain/config.toml is used.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return settings, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing config: %w", err)
	}

	return settings, nil
}

// SaveSettings writes settings to the TOML file at path, creating
// parent directories as needed.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Write with restricted permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
