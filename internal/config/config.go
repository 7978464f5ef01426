package config

import (
	"fmt"
	"time"

	"github.com/facereader/facereader/internal/models"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        string `envconfig:"PORT" default:"8888"`
	Environment string `envconfig:"ENV" default:"development"`
	LogFile     string `envconfig:"LOG_FILE"`

	// Provider
	Provider       string        `envconfig:"ANALYSIS_PROVIDER" default:"gemini"`
	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel    string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OllamaURL      string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaModel    string        `envconfig:"OLLAMA_MODEL" default:"llava:13b"`
	Temperature    float64       `envconfig:"TEMPERATURE" default:"0.7"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	// Images
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	AlignSize      int    `envconfig:"ALIGN_SIZE" default:"600"`
	OutputFormat   string `envconfig:"OUTPUT_FORMAT" default:"jpeg"`

	// Rate limiting for analysis calls, per client IP
	AnalyzeRPS   float64 `envconfig:"ANALYZE_RPS" default:"0.5"`
	AnalyzeBurst int     `envconfig:"ANALYZE_BURST" default:"3"`

	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"zh-TW"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the selected provider needs before any request is made
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return models.ErrConfiguration.WithError(fmt.Errorf("GEMINI_API_KEY environment variable not set"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return models.ErrConfiguration.WithError(fmt.Errorf("OPENAI_API_KEY environment variable not set"))
		}
	case "ollama":
		if c.OllamaURL == "" {
			return models.ErrConfiguration.WithError(fmt.Errorf("OLLAMA_URL environment variable not set"))
		}
	default:
		return models.ErrConfiguration.WithError(fmt.Errorf("unsupported provider: %s", c.Provider))
	}

	if c.RequestTimeout <= 0 {
		return models.ErrConfiguration.WithError(fmt.Errorf("REQUEST_TIMEOUT must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		return models.ErrConfiguration.WithError(fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.AlignSize <= 0 {
		return models.ErrConfiguration.WithError(fmt.Errorf("ALIGN_SIZE must be positive"))
	}
	if c.OutputFormat != "jpeg" && c.OutputFormat != "png" {
		return models.ErrConfiguration.WithError(fmt.Errorf("unsupported OUTPUT_FORMAT: %s", c.OutputFormat))
	}
	return nil
}

// Model returns the model name configured for the selected provider
func (c *Config) Model() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIModel
	case "ollama":
		return c.OllamaModel
	default:
		return c.GeminiModel
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
