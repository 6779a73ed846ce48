package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Queue   QueueConfig   `mapstructure:"queue" validate:"required"`
	Engine  EngineConfig  `mapstructure:"engine" validate:"required"`
	Catalog CatalogConfig `mapstructure:"catalog" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// RateLimit is the sustained number of inference submissions accepted per
	// second. Zero disables rate limiting.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// QueueConfig contains the job processor settings.
type QueueConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPromptTokens int           `mapstructure:"max_prompt_tokens" validate:"gt=0"`
}

// EngineConfig selects and configures the inference backend.
type EngineConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=gemini stub"`

	GeminiAPIKey   string `mapstructure:"gemini_api_key" validate:"required_if=Backend gemini"`
	TokenizerModel string `mapstructure:"tokenizer_model" validate:"required_if=Backend gemini"`

	// StubStepDuration is the simulated time per inference step of the stub backend
	StubStepDuration time.Duration `mapstructure:"stub_step_duration" validate:"gte=0"`
}

// CatalogConfig locates the model catalog and negative prompt preset.
type CatalogConfig struct {
	Path               string `mapstructure:"path" validate:"required"`
	NegativePromptPath string `mapstructure:"negative_prompt_path"`
}
