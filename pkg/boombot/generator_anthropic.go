package boombot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicGenerator struct {
	cfg    GeneratorConfig
	client anthropic.Client
	logger *slog.Logger
}

func newAnthropicGenerator(cfg GeneratorConfig) *anthropicGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &anthropicGenerator{cfg: cfg, client: anthropic.NewClient(opts...), logger: cfg.Logger}
}

func (g *anthropicGenerator) Name() string {
	return ProviderAnthropic
}

func (g *anthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.cfg.Model),
		MaxTokens:   int64(g.cfg.MaxOutputTokens),
		Temperature: anthropic.Float(g.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	g.logger.Debug("anthropic generate", "model", g.cfg.Model, "prompt_len", len(req.Prompt))
	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return GenerateResult{}, UpstreamError(ProviderAnthropic, apiErr.StatusCode, err)
		}
		return GenerateResult{}, classifyProviderError(ProviderAnthropic, err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	content := strings.TrimSpace(strings.Join(parts, "\n"))
	if content == "" {
		return GenerateResult{}, emptyResponseError(ProviderAnthropic)
	}
	model := strings.TrimSpace(string(message.Model))
	if model == "" {
		model = g.cfg.Model
	}
	g.logger.Debug("anthropic generate done",
		"model", model,
		"content_len", len(content),
		"tokens_in", message.Usage.InputTokens,
		"tokens_out", message.Usage.OutputTokens,
		"duration_ms", elapsedMillis(start),
	)
	return GenerateResult{Model: model, Text: content}, nil
}
