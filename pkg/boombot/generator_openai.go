package boombot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIGenerator talks to OpenAI or any OpenAI-compatible chat completions endpoint.
type openAIGenerator struct {
	cfg    GeneratorConfig
	client openai.Client
	logger *slog.Logger
}

func newOpenAIGenerator(cfg GeneratorConfig) *openAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &openAIGenerator{cfg: cfg, client: openai.NewClient(opts...), logger: cfg.Logger}
}

func (g *openAIGenerator) Name() string {
	return ProviderOpenAI
}

func (g *openAIGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	start := time.Now()
	messages := []openai.ChatCompletionMessageParamUnion{}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	g.logger.Debug("openai generate", "model", g.cfg.Model, "prompt_len", len(req.Prompt))
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.cfg.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(g.cfg.MaxOutputTokens)),
		Temperature: openai.Float(g.cfg.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return GenerateResult{}, UpstreamError(ProviderOpenAI, apiErr.StatusCode, err)
		}
		return GenerateResult{}, classifyProviderError(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResult{}, emptyResponseError(ProviderOpenAI)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return GenerateResult{}, emptyResponseError(ProviderOpenAI)
	}
	model := strings.TrimSpace(resp.Model)
	if model == "" {
		model = g.cfg.Model
	}
	g.logger.Debug("openai generate done", "model", model, "content_len", len(content), "duration_ms", elapsedMillis(start))
	return GenerateResult{Model: model, Text: content}, nil
}
