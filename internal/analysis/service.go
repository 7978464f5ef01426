package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/facereader/facereader/internal/config"
	"github.com/facereader/facereader/internal/gemini"
	"github.com/facereader/facereader/internal/i18n"
	"github.com/facereader/facereader/internal/models"
	"github.com/facereader/facereader/internal/ollama"
	"github.com/facereader/facereader/internal/openai"
	"github.com/facereader/facereader/internal/providers"
)

const DefaultTimeout = 60 * time.Second

type Service struct {
	provider    providers.Provider
	assembler   *Assembler
	catalog     *i18n.Catalog
	model       string
	temperature float64
	timeout     time.Duration
}

// Settings are the per-call knobs taken from configuration
type Settings struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func NewService(provider providers.Provider, catalog *i18n.Catalog, settings Settings) *Service {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &Service{
		provider:    provider,
		assembler:   NewAssembler(catalog),
		catalog:     catalog,
		model:       settings.Model,
		temperature: settings.Temperature,
		timeout:     settings.Timeout,
	}
}

// NewProvider builds the provider selected by cfg
func NewProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey), nil
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL), nil
	default:
		return nil, models.ErrConfiguration.WithError(fmt.Errorf("unsupported provider: %s", cfg.Provider))
	}
}

// NewServiceFromConfig validates cfg and wires the configured provider
func NewServiceFromConfig(cfg *config.Config, catalog *i18n.Catalog) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(provider, catalog, Settings{
		Model:       cfg.Model(),
		Temperature: cfg.Temperature,
		Timeout:     cfg.RequestTimeout,
	}), nil
}

func (s *Service) Provider() string { return s.provider.Name() }

// Analyze makes one provider call for the input. Every provider failure is
// reported as ErrUpstream, or ErrUpstreamTimeout when the deadline passed.
// There are no retries.
func (s *Service) Analyze(ctx context.Context, in Input) (string, error) {
	req, err := s.assembler.Assemble(in)
	if err != nil {
		return "", err
	}
	req.Model = s.model
	req.Temperature = s.temperature

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	slog.Info("Requesting analysis", "mode", in.Mode, "provider", s.provider.Name(), "model", s.model, "images", len(req.Images), "language", in.Language)

	text, err := s.provider.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Error("Analysis timed out", "mode", in.Mode, "timeout", s.timeout, "err", err)
			return "", models.ErrUpstreamTimeout.
				WithMessage(s.catalog.Lookup(in.Language, "analysis.error_prefix") + " " + s.catalog.Lookup(in.Language, "analysis.error_timeout")).
				WithError(err)
		}
		slog.Error("Analysis failed", "mode", in.Mode, "provider", s.provider.Name(), "err", err)
		return "", s.upstreamError(in.Language, err)
	}

	text = Sanitize(text)
	if text == "" {
		return "", s.upstreamError(in.Language, fmt.Errorf("empty response after sanitizing"))
	}

	slog.Info("Analysis completed", "mode", in.Mode, "duration", time.Since(start), "length", len(text))
	return text, nil
}

func (s *Service) upstreamError(lang string, err error) error {
	return models.ErrUpstream.
		WithMessage(s.catalog.Lookup(lang, "analysis.error_prefix") + " " + s.catalog.Lookup(lang, "analysis.error_connection")).
		WithError(err)
}

var markup = strings.NewReplacer("*", "", "#", "")

// Sanitize strips the markup characters the UI never renders
func Sanitize(text string) string {
	return strings.TrimSpace(markup.Replace(text))
}
