package boombot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiGenerator struct {
	cfg    GeneratorConfig
	client *genai.Client
	logger *slog.Logger
}

func newGeminiGenerator(cfg GeneratorConfig) (*geminiGenerator, error) {
	clientConfig, err := buildGeminiClientConfig(cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, WrapError(ErrCodeConfig, "invalid gemini endpoint", err)
	}
	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, WrapError(ErrCodeConfig, "create gemini client failed", err)
	}
	return &geminiGenerator{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

func (g *geminiGenerator) Name() string {
	return ProviderGemini
}

func (g *geminiGenerator) requestConfig(req GenerateRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.cfg.Temperature)),
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	return config
}

func (g *geminiGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	start := time.Now()
	g.logger.Debug("gemini generate", "model", g.cfg.Model, "prompt_len", len(req.Prompt))

	response, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.Prompt), g.requestConfig(req))
	if err != nil {
		return GenerateResult{}, classifyGeminiError(err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return GenerateResult{}, emptyResponseError(ProviderGemini)
	}
	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = g.cfg.Model
	}
	g.logger.Debug("gemini generate done", "model", model, "content_len", len(content), "duration_ms", elapsedMillis(start))
	return GenerateResult{Model: model, Text: content}, nil
}

func (g *geminiGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(string) error) (GenerateResult, error) {
	if onChunk == nil {
		return g.Generate(ctx, req)
	}

	accumulated := ""
	model := ""
	for response, err := range g.client.Models.GenerateContentStream(ctx, g.cfg.Model, genai.Text(req.Prompt), g.requestConfig(req)) {
		if err != nil {
			return GenerateResult{}, classifyGeminiError(err)
		}
		if response == nil {
			continue
		}
		if model == "" {
			model = strings.TrimSpace(response.ModelVersion)
		}

		chunkText := response.Text()
		if chunkText == "" {
			continue
		}
		// Some gateways resend the accumulated text instead of a delta.
		delta := chunkText
		if strings.HasPrefix(chunkText, accumulated) {
			delta = chunkText[len(accumulated):]
		}
		if delta == "" {
			continue
		}
		accumulated += delta
		if err := onChunk(delta); err != nil {
			return GenerateResult{}, WrapError(ErrCodeInternal, "stream callback failed", err)
		}
	}

	content := strings.TrimSpace(accumulated)
	if content == "" {
		return GenerateResult{}, emptyResponseError(ProviderGemini)
	}
	if model == "" {
		model = g.cfg.Model
	}
	return GenerateResult{Model: model, Text: content}, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return UpstreamError(ProviderGemini, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return UpstreamError(ProviderGemini, apiErrPtr.Code, err)
	}
	return classifyProviderError(ProviderGemini, err)
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(endpoint)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

// parseGeminiBaseURLAndVersion splits an endpoint such as
// https://host/prefix/v1beta into "https://host/prefix/" and "v1beta".
func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = defaultGeminiBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	var segments []string
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		segments = strings.Split(path, "/")
	}

	apiVersion := "v1beta"
	prefix := segments
	for idx, segment := range segments {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(segment)), "v1") {
			apiVersion = segment
			prefix = segments[:idx]
			break
		}
	}

	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if basePath := strings.Trim(strings.Join(prefix, "/"), "/"); basePath != "" {
		baseURL += basePath + "/"
	}
	return baseURL, apiVersion, nil
}
