package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore persists AppSettings as a TOML file. Fields absent from
// the file keep their defaults, so a partial config is always valid.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// fileSettings is the TOML representation of domain.AppSettings.
type fileSettings struct {
	Backend   backendSection   `toml:"backend"`
	Relevance relevanceSection `toml:"relevance"`
	Chunking  chunkingSection  `toml:"chunking"`
	Embedding aiSection        `toml:"embedding"`
	LLM       aiSection        `toml:"llm"`
}

type backendSection struct {
	Type            string `toml:"type"`
	Endpoint        string `toml:"endpoint"`
	APIKey          string `toml:"api_key"`
	DataDir         string `toml:"data_dir"`
	TextCollection  string `toml:"text_collection"`
	ImageCollection string `toml:"image_collection"`
	Dimensions      int    `toml:"dimensions"`
}

type relevanceSection struct {
	TextThreshold  float64 `toml:"text_threshold"`
	ImageThreshold float64 `toml:"image_threshold"`
	RerankTopK     int     `toml:"rerank_top_k"`
}

type chunkingSection struct {
	ChunkSize int `toml:"chunk_size"`
}

type aiSection struct {
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

func fromDomain(s domain.AppSettings) fileSettings {
	return fileSettings{
		Backend: backendSection{
			Type:            s.Backend.Backend.String(),
			Endpoint:        s.Backend.Endpoint,
			APIKey:          s.Backend.APIKey,
			DataDir:         s.Backend.DataDir,
			TextCollection:  s.Backend.TextCollection,
			ImageCollection: s.Backend.ImageCollection,
			Dimensions:      s.Backend.Dimensions,
		},
		Relevance: relevanceSection{
			TextThreshold:  s.Relevance.TextThreshold,
			ImageThreshold: s.Relevance.ImageThreshold,
			RerankTopK:     s.Relevance.RerankTopK,
		},
		Chunking: chunkingSection{
			ChunkSize: s.Chunking.ChunkSize,
		},
		Embedding: aiSection{
			Provider:          s.Embedding.Provider.String(),
			Model:             s.Embedding.Model,
			BaseURL:           s.Embedding.BaseURL,
			APIKey:            s.Embedding.APIKey,
			RequestsPerSecond: s.Embedding.RequestsPerSecond,
		},
		LLM: aiSection{
			Provider: s.LLM.Provider.String(),
			Model:    s.LLM.Model,
			BaseURL:  s.LLM.BaseURL,
			APIKey:   s.LLM.APIKey,
		},
	}
}

func (f fileSettings) toDomain() domain.AppSettings {
	return domain.AppSettings{
		Backend: domain.BackendSettings{
			Backend:         domain.Backend(f.Backend.Type),
			Endpoint:        f.Backend.Endpoint,
			APIKey:          f.Backend.APIKey,
			DataDir:         f.Backend.DataDir,
			TextCollection:  f.Backend.TextCollection,
			ImageCollection: f.Backend.ImageCollection,
			Dimensions:      f.Backend.Dimensions,
		},
		Relevance: domain.RelevanceSettings{
			TextThreshold:  f.Relevance.TextThreshold,
			ImageThreshold: f.Relevance.ImageThreshold,
			RerankTopK:     f.Relevance.RerankTopK,
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize: f.Chunking.ChunkSize,
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(f.Embedding.Provider),
			Model:             f.Embedding.Model,
			BaseURL:           f.Embedding.BaseURL,
			APIKey:            f.Embedding.APIKey,
			RequestsPerSecond: f.Embedding.RequestsPerSecond,
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(f.LLM.Provider),
			Model:    f.LLM.Model,
			BaseURL:  f.LLM.BaseURL,
			APIKey:   f.LLM.APIKey,
		},
	}
}

// NewSettingsStore creates a TOML settings store.
// If configDir is empty, defaults to ~/.ragstore.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".ragstore")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk. A missing file yields the defaults;
// fields absent from the file keep their default values.
func (s *SettingsStore) Load() (domain.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := fromDomain(domain.DefaultAppSettings())

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings.toDomain(), nil
		}
		return domain.AppSettings{}, fmt.Errorf("reading settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return domain.AppSettings{}, fmt.Errorf("parsing settings: %w", err)
	}
	return settings.toDomain(), nil
}

// Save persists the settings to disk with restricted permissions, since
// the file can hold API keys.
func (s *SettingsStore) Save(settings domain.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(fromDomain(settings))
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Watch invokes fn with freshly loaded settings whenever the config file
// changes. The directory is watched rather than the file so editors that
// replace the file atomically still trigger a reload.
func (s *SettingsStore) Watch(fn func(domain.AppSettings)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.filePath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				settings, err := s.Load()
				if err != nil {
					logger.Warn("Ignoring settings change: %v", err)
					continue
				}
				logger.Debug("Settings file changed, reloading")
				fn(settings)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Settings watcher error: %v", err)
			}
		}
	}()

	stop := func() {
		watcher.Close()
		<-done
	}
	return stop, nil
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}
