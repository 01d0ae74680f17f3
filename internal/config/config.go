// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DOCPILOT_* runtime override)
//  2. Config file (~/.docpilot/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDataDir indicates the data directory is invalid.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidTopK indicates a retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidGateCapacity indicates the admission gate capacity is out of range.
	ErrInvalidGateCapacity = errors.New("invalid gate capacity")

	// ErrInvalidTimeout indicates the model call timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid model timeout")
)

const (
	// DefaultModelName is the default generation model.
	DefaultModelName = "googleai/gemini-2.0-flash-lite"

	// DefaultEmbedderModel is the default embedding model.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultRetrievalTopK is the number of document chunks retrieved per
	// conversational turn.
	DefaultRetrievalTopK = 10

	// DefaultRecallTopK is the number of past experiences recalled per
	// classification request.
	DefaultRecallTopK = 2

	// DefaultGateCapacity bounds concurrent classification calls during bulk
	// pipeline runs.
	DefaultGateCapacity = 5

	// DefaultModelTimeout bounds every outbound model call. A hung call would
	// otherwise hold its admission gate slot indefinitely.
	DefaultModelTimeout = 30 * time.Second

	// MaxTopK is the absolute maximum for retrieval top-k values.
	MaxTopK = 100

	// MaxGateCapacity is the absolute maximum admission gate capacity.
	MaxGateCapacity = 64

	configDirName  = ".docpilot"
	configFileName = "config"
)

// Config holds all application configuration.
type Config struct {
	// AI
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	Temperature   float64 `mapstructure:"temperature"`

	// Storage
	DataDir string `mapstructure:"data_dir"`

	// Retrieval
	RetrievalTopK int `mapstructure:"retrieval_top_k"`
	RecallTopK    int `mapstructure:"recall_top_k"`

	// Concurrency
	GateCapacity int           `mapstructure:"gate_capacity"`
	ModelTimeout time.Duration `mapstructure:"model_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load reads configuration from defaults, the optional config file and
// DOCPILOT_* environment variables, then validates the result.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("DOCPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real failure.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied.
// Useful for tests and programmatic construction.
func Default() *Config {
	return &Config{
		ModelName:     DefaultModelName,
		EmbedderModel: DefaultEmbedderModel,
		Temperature:   0.3,
		DataDir:       defaultDataDir(),
		RetrievalTopK: DefaultRetrievalTopK,
		RecallTopK:    DefaultRecallTopK,
		GateCapacity:  DefaultGateCapacity,
		ModelTimeout:  DefaultModelTimeout,
		LogLevel:      "info",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("retrieval_top_k", DefaultRetrievalTopK)
	v.SetDefault("recall_top_k", DefaultRecallTopK)
	v.SetDefault("gate_capacity", DefaultGateCapacity)
	v.SetDefault("model_timeout", DefaultModelTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Validate checks all configuration values.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data dir must not be empty", ErrInvalidDataDir)
	}
	if c.RetrievalTopK < 1 || c.RetrievalTopK > MaxTopK {
		return fmt.Errorf("%w: retrieval_top_k must be 1..%d, got %d", ErrInvalidTopK, MaxTopK, c.RetrievalTopK)
	}
	if c.RecallTopK < 1 || c.RecallTopK > MaxTopK {
		return fmt.Errorf("%w: recall_top_k must be 1..%d, got %d", ErrInvalidTopK, MaxTopK, c.RecallTopK)
	}
	if c.GateCapacity < 1 || c.GateCapacity > MaxGateCapacity {
		return fmt.Errorf("%w: gate_capacity must be 1..%d, got %d", ErrInvalidGateCapacity, MaxGateCapacity, c.GateCapacity)
	}
	if c.ModelTimeout <= 0 || c.ModelTimeout > 10*time.Minute {
		return fmt.Errorf("%w: model_timeout must be positive and at most 10m, got %s", ErrInvalidTimeout, c.ModelTimeout)
	}
	return nil
}

// DocumentIndexDir returns the persisted index directory for the document
// corpus namespace.
func (c *Config) DocumentIndexDir() string {
	return filepath.Join(c.DataDir, "index", "documents")
}

// MemoryIndexDir returns the persisted index directory for the episodic
// memory namespace.
func (c *Config) MemoryIndexDir() string {
	return filepath.Join(c.DataDir, "index", "memory")
}

// CheckpointDBPath returns the SQLite database path for conversation
// checkpoints.
func (c *Config) CheckpointDBPath() string {
	return filepath.Join(c.DataDir, "conversations.db")
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func defaultDataDir() string {
	dir, err := configDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(dir, "data")
}
