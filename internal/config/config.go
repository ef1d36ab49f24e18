// Package config loads the YAML configuration of the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// Environment variables that override file settings.
const (
	EnvAddr     = "METARAG_ADDR"
	EnvProvider = "METARAG_PROVIDER"
)

// Provider names accepted by llm.provider and embedding.provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Store types accepted by store.type.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EngineConfig tunes the router and executors.
type EngineConfig struct {
	MaxChunks               int    `yaml:"max_chunks"`
	FactTopK                int    `yaml:"fact_top_k"`
	MetaQuery               string `yaml:"meta_query"`
	ReturnIntermediateSteps bool   `yaml:"return_intermediate_steps"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// IngestConfig configures corpus ingestion.
type IngestConfig struct {
	DocumentsDir  string `yaml:"documents_dir"`
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	Watch         bool   `yaml:"watch"`
	PDFServiceURL string `yaml:"pdf_service_url"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logging   LoggingConfig       `yaml:"logging"`
	LLM       LLMConfig           `yaml:"llm"`
	Models    entities.ModelRoles `yaml:"models"`
	Engine    EngineConfig        `yaml:"engine"`
	Embedding EmbeddingConfig     `yaml:"embedding"`
	Store     StoreConfig         `yaml:"store"`
	Ingest    IngestConfig        `yaml:"ingest"`
}

// LoadDotEnv loads variables from .env files into the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a config from path. Keys missing from the file keep their defaults;
// a missing file yields the defaults. Environment overrides apply in both cases.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/metarag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, Default()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration the service ships with.
func Default() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", JSON: true},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 120,
		},
		Models: entities.DefaultModelRoles(),
		Engine: EngineConfig{
			MaxChunks:               30,
			FactTopK:                4,
			ReturnIntermediateSteps: true,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Store: StoreConfig{Type: StoreSQLite, Path: "./data"},
		Ingest: IngestConfig{
			DocumentsDir: "./documents",
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
	}
}

// APIKey returns the provider key from the configured environment variable.
func (c *AppConfig) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Validate reports the first setting the service cannot run with.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider)
	}
	switch c.Store.Type {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("store.type: unknown store %q", c.Store.Type)
	}
	roles := map[string]entities.ModelConfig{
		"classifier": c.Models.Classifier,
		"fact":       c.Models.Fact,
		"map":        c.Models.Map,
		"reduce":     c.Models.Reduce,
	}
	for name, m := range roles {
		if m.Model == "" {
			return fmt.Errorf("models.%s.model is required", name)
		}
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "metarag", "config.yaml"), nil
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.TimeoutSecs <= 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	for _, m := range []*entities.ModelConfig{&cfg.Models.Classifier, &cfg.Models.Fact, &cfg.Models.Map, &cfg.Models.Reduce} {
		if m.MaxConcurrency <= 0 {
			m.MaxConcurrency = 1
		}
	}
	if cfg.Engine.MaxChunks <= 0 {
		cfg.Engine.MaxChunks = def.Engine.MaxChunks
	}
	if cfg.Engine.FactTopK <= 0 {
		cfg.Engine.FactTopK = def.Engine.FactTopK
	}
	if cfg.Embedding.Provider == ProviderOllama && cfg.Embedding.Model == def.Embedding.Model {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = def.Ingest.ChunkSize
	}
	if cfg.Ingest.ChunkOverlap < 0 {
		cfg.Ingest.ChunkOverlap = def.Ingest.ChunkOverlap
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.LLM.Provider = v
	}
}
