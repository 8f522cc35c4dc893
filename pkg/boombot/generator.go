package boombot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Provider names accepted by NewGenerator.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	defaultMaxOutputTokens = 2048
	defaultTemperature     = 0.4
)

// GenerateRequest is the fixed-shape request sent to a text generation service.
type GenerateRequest struct {
	SystemPrompt string
	Prompt       string
}

// GenerateResult carries the raw generated text.
type GenerateResult struct {
	Model string
	Text  string
}

// Generator produces text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// StreamGenerator is implemented by generators that can emit partial text.
type StreamGenerator interface {
	Generator
	GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(string) error) (GenerateResult, error)
}

// GeneratorConfig selects and configures a provider.
type GeneratorConfig struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Temperature     float64
	// MaxRetries is passed to SDKs that retry on their own; negative keeps the SDK default.
	MaxRetries int
	Logger     *slog.Logger
}

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(cfg GeneratorConfig) (Generator, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, NewError(ErrCodeConfig, "api key is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	cfg.Model = strings.TrimSpace(cfg.Model)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		if cfg.Model == "" {
			cfg.Model = defaultGeminiModel
		}
		return newGeminiGenerator(cfg)
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
		return newOpenAIGenerator(cfg), nil
	case ProviderAnthropic:
		if cfg.Model == "" {
			cfg.Model = defaultAnthropicModel
		}
		return newAnthropicGenerator(cfg), nil
	default:
		return nil, NewError(ErrCodeConfig, fmt.Sprintf("unsupported provider: %s", cfg.Provider))
	}
}

// generateStream falls back to a single chunk for generators without streaming.
func generateStream(ctx context.Context, g Generator, req GenerateRequest, onChunk func(string) error) (GenerateResult, error) {
	if sg, ok := g.(StreamGenerator); ok && onChunk != nil {
		return sg.GenerateStream(ctx, req, onChunk)
	}
	result, err := g.Generate(ctx, req)
	if err != nil {
		return GenerateResult{}, err
	}
	if onChunk != nil {
		if err := onChunk(result.Text); err != nil {
			return GenerateResult{}, WrapError(ErrCodeInternal, "stream callback failed", err)
		}
	}
	return result, nil
}

// classifyProviderError maps transport-level failures that carry no HTTP status.
func classifyProviderError(provider string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if isTimeoutError(err) {
		return WrapError(ErrCodeUpstreamTimeout, provider+" request timed out", err)
	}
	return WrapError(ErrCodeInternal, provider+" request failed", err)
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func emptyResponseError(provider string) error {
	return NewError(ErrCodeEmptyResponse, provider+" response content is empty")
}

func elapsedMillis(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
