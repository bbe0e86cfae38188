package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig controls how much context reaches the model.
type RetrievalConfig struct {
	AnswerTopK   int `yaml:"answer_top_k"`
	StudyTopK    int `yaml:"study_top_k"`
	HistoryTurns int `yaml:"history_turns"`
}

// OpenAIConfig contains connection details for an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GenerationConfig selects the model provider and its retry budget.
type GenerationConfig struct {
	Provider      string        `yaml:"provider"`
	OpenAI        *OpenAIConfig `yaml:"openai,omitempty"`
	MaxRetries    *int          `yaml:"max_retries"` // nil means the default; 0 disables retries
	BaseDelaySecs int           `yaml:"base_delay_secs"`
}

// TranscriptConfig selects where conversation history lives.
type TranscriptConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// ObjectStoreConfig points at the directory keeping uploaded files. Empty
// disables durable copies.
type ObjectStoreConfig struct {
	Dir string `yaml:"dir"`
}

// ParserConfig configures document extraction.
type ParserConfig struct {
	PDFToText string `yaml:"pdftotext"`
	MaxBytes  int64  `yaml:"max_bytes"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	JWTSecretEnv string `yaml:"jwt_secret_env"`
	DevAuth      bool   `yaml:"dev_auth"`
}

// WatcherConfig configures directory ingestion.
type WatcherConfig struct {
	Dir  string `yaml:"dir"`
	User string `yaml:"user"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Generation  GenerationConfig  `yaml:"generation"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Parser      ParserConfig      `yaml:"parser"`
	Server      ServerConfig      `yaml:"server"`
	Watcher     WatcherConfig     `yaml:"watcher"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/askmynotes/config.yaml.
// If neither exists, it writes defaults to ~/.config/askmynotes/config.yaml and returns them.
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
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "askmynotes", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Generation: GenerationConfig{Provider: "mock"},
		Transcript: TranscriptConfig{Type: "memory"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// applyConfigDefaults fills zero values. A configured overlap of zero is
// kept as is; a negative one is left for the chunker to reject.
func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 500
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 50
		}
	}
	if cfg.Retrieval.AnswerTopK == 0 {
		cfg.Retrieval.AnswerTopK = 5
	}
	if cfg.Retrieval.StudyTopK == 0 {
		cfg.Retrieval.StudyTopK = 10
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 10
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "mock"
	}
	if cfg.Generation.MaxRetries == nil {
		retries := 2
		cfg.Generation.MaxRetries = &retries
	}
	if cfg.Generation.BaseDelaySecs == 0 {
		cfg.Generation.BaseDelaySecs = 10
	}
	if cfg.Generation.Provider == "openai" {
		if cfg.Generation.OpenAI == nil {
			cfg.Generation.OpenAI = &OpenAIConfig{}
		}
		if cfg.Generation.OpenAI.BaseURL == "" {
			cfg.Generation.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Generation.OpenAI.APIKeyEnv == "" {
			cfg.Generation.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generation.OpenAI.Model == "" {
			cfg.Generation.OpenAI.Model = "gpt-4o-mini"
		}
		if cfg.Generation.OpenAI.TimeoutSecs == 0 {
			cfg.Generation.OpenAI.TimeoutSecs = 60
		}
	}
	if cfg.Transcript.Type == "" {
		cfg.Transcript.Type = "memory"
	}
	if cfg.Transcript.Type == "sqlite" && cfg.Transcript.Path == "" {
		cfg.Transcript.Path = "askmynotes.db"
	}
	if cfg.Parser.PDFToText == "" {
		cfg.Parser.PDFToText = "pdftotext"
	}
	if cfg.Parser.MaxBytes == 0 {
		cfg.Parser.MaxBytes = 10 << 20
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.JWTSecretEnv == "" {
		cfg.Server.JWTSecretEnv = "JWT_SECRET"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
