package core

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
	"github.com/jo-hoe/imagingagent/internal/backend/model"
	"github.com/jo-hoe/imagingagent/internal/backend/prompt"
	"github.com/jo-hoe/imagingagent/internal/backend/session"
)

// APIKeyEnv names the variable holding the model credential
const APIKeyEnv = "GOOGLE_API_KEY"

type ModelConfig struct {
	Name           string `yaml:"name"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

type PromptConfig struct {
	Name string `yaml:"name"`
	// 0 selects the latest version
	Version int `yaml:"version"`
}

type SessionConfig struct {
	Type       string `yaml:"type"`
	Address    string `yaml:"address"`
	TTLMinutes int    `yaml:"ttlMinutes"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type ServiceConfig struct {
	Port            int                              `yaml:"port"`
	DisplayWidth    int                              `yaml:"displayWidth"`
	MaxUploadBytes  int64                            `yaml:"maxUploadBytes"`
	Model           ModelConfig                      `yaml:"model"`
	Prompt          PromptConfig                     `yaml:"prompt"`
	Session         SessionConfig                    `yaml:"session"`
	IngestCommands  []commandstructure.CommandConfig `yaml:"ingestCommands"`
	DisplayCommands []commandstructure.CommandConfig `yaml:"displayCommands"`
}

// DefaultConfig reproduces the stock tool: 500px display width, Gemini flash, in-memory sessions
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{
		Port:           8080,
		DisplayWidth:   500,
		MaxUploadBytes: 32 << 20,
		Model: ModelConfig{
			Name:     model.DefaultModelName,
			Endpoint: model.DefaultEndpoint,
		},
		Prompt: PromptConfig{
			Name:    prompt.DefaultName,
			Version: 1,
		},
		Session: SessionConfig{
			Type:       session.StoreTypeMemory,
			TTLMinutes: 60,
		},
	}
	applyCommandDefaults(config)
	return config
}

// LoadConfig loads configuration from the specified YAML file.
// A missing file yields DefaultConfig; unset keys keep their defaults.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()
	config.IngestCommands = nil
	config.DisplayCommands = nil

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", configPath)
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	applyCommandDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyCommandDefaults fills pipelines left empty; the display resize follows displayWidth
func applyCommandDefaults(config *ServiceConfig) {
	if len(config.IngestCommands) == 0 {
		config.IngestCommands = []commandstructure.CommandConfig{
			{Name: "NormalizeCommand", Params: map[string]any{}},
		}
	}
	if len(config.DisplayCommands) == 0 {
		config.DisplayCommands = []commandstructure.CommandConfig{
			{Name: "PixelScaleCommand", Params: map[string]any{"width": config.DisplayWidth}},
		}
	}
}

func (config *ServiceConfig) Validate() error {
	if config.DisplayWidth <= 0 {
		return fmt.Errorf("displayWidth must be positive, got %d", config.DisplayWidth)
	}
	if config.MaxUploadBytes <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive, got %d", config.MaxUploadBytes)
	}
	if config.Model.TimeoutSeconds < 0 {
		return fmt.Errorf("model.timeoutSeconds must not be negative, got %d", config.Model.TimeoutSeconds)
	}
	switch config.Session.Type {
	case session.StoreTypeMemory, session.StoreTypeRedis:
	default:
		return fmt.Errorf("unsupported session type: %q", config.Session.Type)
	}
	if config.Session.Type == session.StoreTypeRedis && config.Session.Address == "" {
		return errors.New("session.address is required for the redis session store")
	}
	if err := validateCommands(config.IngestCommands); err != nil {
		return fmt.Errorf("invalid ingest command configuration: %w", err)
	}
	if err := validateCommands(config.DisplayCommands); err != nil {
		return fmt.Errorf("invalid display command configuration: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations name a registered command exactly once
func validateCommands(commands []commandstructure.CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command: %s", cmd.Name)
		}

		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}

// LoadAPIKey reads the model credential from the environment after merging the
// given .env files (".env" when none are named). Missing files are ignored and
// variables already set in the process win.
func LoadAPIKey(envFiles ...string) string {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return os.Getenv(APIKeyEnv)
}
