package boombot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    []GenerateRequest
	text     string
	model    string
	err      error
	block    bool
	chunks   []string
	streamed bool
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return GenerateResult{}, ctx.Err()
	}
	if f.err != nil {
		return GenerateResult{}, f.err
	}
	return GenerateResult{Model: f.model, Text: f.text}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeStreamGenerator struct {
	fakeGenerator
}

func (f *fakeStreamGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(string) error) (GenerateResult, error) {
	f.streamed = true
	var b strings.Builder
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return GenerateResult{}, err
		}
		b.WriteString(chunk)
	}
	return GenerateResult{Model: f.model, Text: b.String()}, nil
}

type recordingObserver struct {
	mu          sync.Mutex
	checks      []bool
	generations []ErrorCode
	parses      []int
	fallbacks   []bool
}

func (o *recordingObserver) ObserveSectorCheck(_ MatchLayer, matched bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks = append(o.checks, matched)
}

func (o *recordingObserver) ObserveGeneration(_ string, code ErrorCode, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generations = append(o.generations, code)
}

func (o *recordingObserver) ObserveParse(records int, fallback bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parses = append(o.parses, records)
	o.fallbacks = append(o.fallbacks, fallback)
}

func newTestAdvisor(t *testing.T, gen Generator, obs Observer) *Advisor {
	t.Helper()
	advisor, err := NewAdvisor(AdvisorOptions{Generator: gen, Observer: obs, RequestTimeout: time.Second})
	require.NoError(t, err)
	return advisor
}

func TestNewAdvisorRequiresGenerator(t *testing.T) {
	_, err := NewAdvisor(AdvisorOptions{})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeConfig))
}

func TestRecommendFormatsGeneratedText(t *testing.T) {
	gen := &fakeGenerator{text: threeBankingStocks, model: "fake-1"}
	obs := &recordingObserver{}
	advisor := newTestAdvisor(t, gen, obs)

	reply, err := advisor.Recommend(context.Background(), "  Banking ")
	require.NoError(t, err)
	assert.Equal(t, "Banking", reply.Sector)
	assert.Equal(t, "fake", reply.Provider)
	assert.Equal(t, "fake-1", reply.Model)
	assert.False(t, reply.Fallback)
	require.Len(t, reply.Recommendations, 3)
	assert.Len(t, strings.Split(reply.Text, "\n"), 3)

	require.Equal(t, 1, gen.callCount())
	assert.Equal(t, SystemPrompt, gen.calls[0].SystemPrompt)
	assert.Contains(t, gen.calls[0].Prompt, "from the Banking sector")
	assert.Equal(t, []bool{true}, obs.checks)
	assert.Equal(t, []ErrorCode{""}, obs.generations)
	assert.Equal(t, []int{3}, obs.parses)
}

func TestRecommendRejectsInvalidSector(t *testing.T) {
	gen := &fakeGenerator{text: "unused"}
	obs := &recordingObserver{}
	advisor := newTestAdvisor(t, gen, obs)

	reply, err := advisor.Recommend(context.Background(), "xyz123")
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidSector))
	assert.Equal(t, InvalidSectorMessage, ErrorMessage(err))
	assert.Zero(t, gen.callCount())
	assert.Equal(t, []bool{false}, obs.checks)
}

func TestRecommendSurfacesGenerationErrors(t *testing.T) {
	upstream := UpstreamError("fake", 503, errors.New("service unavailable"))
	gen := &fakeGenerator{err: upstream}
	obs := &recordingObserver{}
	advisor := newTestAdvisor(t, gen, obs)

	reply, err := advisor.Recommend(context.Background(), "pharma")
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.True(t, IsErrorCode(err, ErrCodeUpstream))
	assert.True(t, strings.HasPrefix(ErrorMessage(err), "❌ Generation API Error:\n"))
	assert.Equal(t, []ErrorCode{ErrCodeUpstream}, obs.generations)
	assert.Empty(t, obs.parses, "failed generations must not reach the parser")
}

func TestRecommendWrapsUnclassifiedErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	advisor := newTestAdvisor(t, gen, nil)

	_, err := advisor.Recommend(context.Background(), "pharma")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.True(t, strings.HasPrefix(ErrorMessage(err), "⚠️ Error: "))
}

func TestRecommendTimesOut(t *testing.T) {
	gen := &fakeGenerator{block: true}
	advisor, err := NewAdvisor(AdvisorOptions{Generator: gen, RequestTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = advisor.Recommend(context.Background(), "auto")
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeUpstreamTimeout))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRecommendFallbackText(t *testing.T) {
	prose := "The IT sector may see volatility this week; watch large caps with strong order books."
	obs := &recordingObserver{}
	advisor := newTestAdvisor(t, &fakeGenerator{text: prose}, obs)

	reply, err := advisor.Recommend(context.Background(), "IT")
	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Equal(t, prose, reply.Text)
	assert.Empty(t, reply.Recommendations)
	assert.Equal(t, []bool{true}, obs.fallbacks)
}

func TestRecommendStreamSingleChunkFallback(t *testing.T) {
	gen := &fakeGenerator{text: "**Stock Name:** Maruti"}
	advisor := newTestAdvisor(t, gen, nil)

	var deltas []string
	reply, err := advisor.RecommendStream(context.Background(), "auto", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"**Stock Name:** Maruti"}, deltas)
	assert.Equal(t, "Maruti | Entry Price: TBD | Exit Price: TBD | Reason: Strong fundamentals and market outlook", reply.Text)
}

func TestRecommendStreamForwardsChunks(t *testing.T) {
	gen := &fakeStreamGenerator{fakeGenerator{chunks: []string{"**Stock Name:** Tata", " Motors\n", "**Entry Price:** 900"}}}
	advisor := newTestAdvisor(t, gen, nil)

	var deltas []string
	reply, err := advisor.RecommendStream(context.Background(), "auto", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, gen.streamed)
	assert.Len(t, deltas, 3)
	assert.Equal(t, "Tata Motors | Entry Price: 900 | Exit Price: TBD | Reason: Strong fundamentals and market outlook", reply.Text)
}

func TestRecommendStreamCallbackError(t *testing.T) {
	advisor := newTestAdvisor(t, &fakeGenerator{text: "anything"}, nil)
	_, err := advisor.RecommendStream(context.Background(), "auto", func(string) error {
		return errors.New("client gone")
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
}

func TestAdvisorConcurrentUse(t *testing.T) {
	gen := &fakeGenerator{text: threeBankingStocks}
	advisor := newTestAdvisor(t, gen, &recordingObserver{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := advisor.Recommend(context.Background(), "banking")
			assert.NoError(t, err)
			if reply != nil {
				assert.Len(t, reply.Recommendations, 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, gen.callCount())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Real Estate", 0)
	assert.Contains(t, prompt, "Suggest 2 Indian stocks from the Real Estate sector")
	assert.Contains(t, prompt, "**Stock Name:**")

	assert.Contains(t, BuildPrompt("IT", 1), "Suggest 1 Indian stock from")
	assert.Contains(t, BuildPrompt("IT", 9), "Suggest 3 Indian stocks from")
}
