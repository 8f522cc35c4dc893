package boombot

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const defaultRequestTimeout = 60 * time.Second

// AdvisorOptions controls Advisor initialization.
type AdvisorOptions struct {
	Vocabulary     *Vocabulary
	Generator      Generator
	Logger         *slog.Logger
	Observer       Observer
	RequestTimeout time.Duration
	StocksPerReply int
}

// Advisor validates sector input, asks the generator for recommendations and
// formats the reply. It is safe for concurrent use.
type Advisor struct {
	matcher        *Matcher
	generator      Generator
	logger         *slog.Logger
	observer       Observer
	requestTimeout time.Duration
	stocksPerReply int
}

// Reply is the formatted answer for one sector request.
type Reply struct {
	Sector          string           `json:"sector"`
	Text            string           `json:"text"`
	Recommendations []Recommendation `json:"recommendations"`
	Fallback        bool             `json:"fallback"`
	Provider        string           `json:"provider"`
	Model           string           `json:"model"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// NewAdvisor builds an Advisor. Generator is required.
func NewAdvisor(opts AdvisorOptions) (*Advisor, error) {
	if opts.Generator == nil {
		return nil, NewError(ErrCodeConfig, "generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Advisor{
		matcher:        NewMatcher(opts.Vocabulary, logger),
		generator:      opts.Generator,
		logger:         logger,
		observer:       observer,
		requestTimeout: timeout,
		stocksPerReply: opts.StocksPerReply,
	}, nil
}

// Matcher returns the sector matcher used by the advisor.
func (a *Advisor) Matcher() *Matcher {
	return a.matcher
}

// CheckSector classifies text and records the outcome.
func (a *Advisor) CheckSector(text string) MatchResult {
	result := a.matcher.Match(text)
	a.observer.ObserveSectorCheck(result.Layer, result.Matched)
	return result
}

// Recommend returns formatted recommendations for sector.
func (a *Advisor) Recommend(ctx context.Context, sector string) (*Reply, error) {
	return a.recommend(ctx, sector, nil)
}

// RecommendStream is Recommend with raw generated chunks forwarded to onDelta.
func (a *Advisor) RecommendStream(ctx context.Context, sector string, onDelta func(string) error) (*Reply, error) {
	return a.recommend(ctx, sector, onDelta)
}

func (a *Advisor) recommend(ctx context.Context, sector string, onDelta func(string) error) (*Reply, error) {
	sector = strings.TrimSpace(sector)
	if !a.CheckSector(sector).Matched {
		a.logger.Info("invalid sector input", "input", sector)
		return nil, NewError(ErrCodeInvalidSector, "unrecognized sector: "+sector)
	}

	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	req := GenerateRequest{
		SystemPrompt: SystemPrompt,
		Prompt:       BuildPrompt(sector, a.stocksPerReply),
	}
	provider := a.generator.Name()
	a.logger.Debug("requesting recommendations", "sector", sector, "provider", provider)

	start := time.Now()
	result, err := generateStream(ctx, a.generator, req, onDelta)
	elapsed := time.Since(start)
	if err != nil {
		err = classifyProviderError(provider, err)
		code := CodeOf(err)
		a.observer.ObserveGeneration(provider, code, elapsed)
		a.logger.Error("generation failed", "sector", sector, "provider", provider, "code", code, "duration_ms", elapsed.Milliseconds(), "err", err)
		return nil, err
	}
	a.observer.ObserveGeneration(provider, "", elapsed)
	a.logger.Debug("raw generation received", "sector", sector, "model", result.Model, "length", len(result.Text))

	parsed := ParseResponse(result.Text)
	a.observer.ObserveParse(len(parsed.Recommendations), parsed.Fallback)
	a.logger.Info("recommendations ready",
		"sector", sector,
		"provider", provider,
		"model", result.Model,
		"records", len(parsed.Recommendations),
		"fallback", parsed.Fallback,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Reply{
		Sector:          sector,
		Text:            parsed.Text,
		Recommendations: parsed.Recommendations,
		Fallback:        parsed.Fallback,
		Provider:        provider,
		Model:           result.Model,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}
