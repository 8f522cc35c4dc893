package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"boombot/pkg/boombot"
)

const (
	defaultWorkers       = 8
	defaultRatePerMinute = 6
	defaultRateBurst     = 3
	defaultPollTimeout   = 60

	// limiterIdleTTL is how long a chat's limiter survives without traffic.
	limiterIdleTTL = 30 * time.Minute
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// Recommender produces a reply for a sector name.
type Recommender interface {
	Recommend(ctx context.Context, sector string) (*boombot.Reply, error)
}

// MessageObserver counts Telegram traffic.
type MessageObserver interface {
	ObserveTelegramMessage(direction, kind string)
}

type nopMessageObserver struct{}

func (nopMessageObserver) ObserveTelegramMessage(string, string) {}

// Options controls Bot initialization.
type Options struct {
	API         API
	Recommender Recommender
	Vocabulary  *boombot.Vocabulary
	Logger      *slog.Logger
	Observer    MessageObserver
	// Workers bounds concurrently handled updates.
	Workers int
	// RatePerMinute and RateBurst throttle free-text requests per chat.
	// Zero rate disables throttling.
	RatePerMinute float64
	RateBurst     int
	PollTimeout   int
}

// Bot routes Telegram updates to the recommender.
type Bot struct {
	api         API
	recommender Recommender
	vocab       *boombot.Vocabulary
	logger      *slog.Logger
	observer    MessageObserver
	workers     int
	pollTimeout int

	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	mu        sync.Mutex
	limiters  map[int64]*chatLimiter
	lastSweep time.Time
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a Bot. API and Recommender are required.
func New(opts Options) (*Bot, error) {
	if opts.API == nil {
		return nil, boombot.NewError(boombot.ErrCodeConfig, "telegram api is required")
	}
	if opts.Recommender == nil {
		return nil, boombot.NewError(boombot.ErrCodeConfig, "recommender is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopMessageObserver{}
	}
	vocab := opts.Vocabulary
	if vocab == nil {
		vocab = boombot.DefaultVocabulary()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	b := &Bot{
		api:         opts.API,
		recommender: opts.Recommender,
		vocab:       vocab,
		logger:      logger.With("component", "telegram"),
		observer:    observer,
		workers:     workers,
		pollTimeout: pollTimeout,
		limit:       rate.Inf,
		idleTTL:     limiterIdleTTL,
		now:         time.Now,
		limiters:    make(map[int64]*chatLimiter),
	}
	if opts.RatePerMinute > 0 {
		b.limit = rate.Limit(opts.RatePerMinute / 60)
		b.burst = opts.RateBurst
		if b.burst <= 0 {
			b.burst = 1
		}
		// An evicted limiter must already have refilled to its full burst.
		if refill := time.Duration(float64(b.burst) / float64(b.limit) * float64(time.Second)); refill > b.idleTTL {
			b.idleTTL = refill
		}
	}
	return b, nil
}

// NewFromToken connects to the Bot API with token and builds a Bot.
func NewFromToken(token string, debug bool, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, boombot.WrapError(boombot.ErrCodeConfig, "connect telegram bot api failed", err)
	}
	api.Debug = debug
	if opts.Logger != nil {
		opts.Logger.Info("telegram bot authorized", "username", api.Self.UserName)
	}
	opts.API = api
	return New(opts)
}

// Run long-polls for updates until ctx is cancelled or the update channel
// closes, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	// Handlers finish their reply even after shutdown starts.
	handlerCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(b.workers)
	b.logger.Info("telegram polling started", "workers", b.workers)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram polling stopping", "reason", ctx.Err())
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("telegram update channel closed")
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(handlerCtx, update)
				return nil
			})
		}
	}
}

// HandleUpdate answers one update. Errors are logged and reported to the chat.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	logger := b.logger.With("request_id", uuid.NewString(), "chat_id", chatID, "update_id", update.UpdateID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic handling update", "panic", rec)
		}
	}()

	if msg.IsCommand() {
		b.observer.ObserveTelegramMessage("in", "command")
		b.handleCommand(logger, chatID, msg.Command())
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	b.observer.ObserveTelegramMessage("in", "text")

	if !b.allow(chatID) {
		logger.Info("chat rate limited")
		b.sendPlain(logger, chatID, boombot.RateLimitedMessage, "rate_limited")
		return
	}

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("send typing action failed", "err", err)
	}

	start := time.Now()
	reply, err := b.recommender.Recommend(ctx, text)
	if err != nil {
		if boombot.IsErrorCode(err, boombot.ErrCodeInvalidSector) {
			b.sendMarkdown(logger, chatID, boombot.InvalidSectorMessage, "invalid_sector")
			return
		}
		logger.Warn("recommendation failed", "input", text, "code", boombot.CodeOf(err), "err", err)
		b.sendPlain(logger, chatID, boombot.ErrorMessage(err), "error")
		return
	}

	chunks := SplitMessage(reply.Text, MaxMessageLength)
	for i, chunk := range chunks {
		if err := b.sendMarkdown(logger, chatID, chunk, "reply"); err != nil {
			logger.Warn("reply not delivered",
				"sector", reply.Sector,
				"chunks", len(chunks),
				"delivered", i,
				"err", err,
			)
			return
		}
	}
	logger.Info("reply sent",
		"sector", reply.Sector,
		"chunks", len(chunks),
		"fallback", reply.Fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (b *Bot) handleCommand(logger *slog.Logger, chatID int64, command string) {
	switch strings.ToLower(command) {
	case "start":
		b.sendMarkdown(logger, chatID, boombot.WelcomeMessage, "welcome")
	case "description", "help":
		b.sendMarkdown(logger, chatID, boombot.DescriptionMessage, "description")
	case "sectors":
		b.sendMarkdown(logger, chatID, boombot.SectorListMessage(b.vocab), "sectors")
	default:
		logger.Debug("unknown command", "command", command)
		b.sendMarkdown(logger, chatID, boombot.WelcomeMessage, "welcome")
	}
}

func (b *Bot) allow(chatID int64) bool {
	if b.limit == rate.Inf {
		return true
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastSweep) >= b.idleTTL {
		for id, entry := range b.limiters {
			if now.Sub(entry.lastSeen) >= b.idleTTL {
				delete(b.limiters, id)
			}
		}
		b.lastSweep = now
	}
	entry, ok := b.limiters[chatID]
	if !ok {
		entry = &chatLimiter{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.limiters[chatID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (b *Bot) trackedChats() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.limiters)
}

// sendMarkdown sends text with Markdown parsing and retries as plain text
// when Telegram rejects the entities.
func (b *Bot) sendMarkdown(logger *slog.Logger, chatID int64, text, kind string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	if err == nil {
		b.observer.ObserveTelegramMessage("out", kind)
		return nil
	}
	if !isEntityParseError(err) {
		logger.Error("send message failed", "kind", kind, "err", err)
		b.observer.ObserveTelegramMessage("out", "failed")
		return err
	}
	logger.Debug("markdown rejected, resending as plain text", "kind", kind, "err", err)
	return b.sendPlain(logger, chatID, text, kind)
}

func (b *Bot) sendPlain(logger *slog.Logger, chatID int64, text, kind string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error("send message failed", "kind", kind, "err", err)
		b.observer.ObserveTelegramMessage("out", "failed")
		return err
	}
	b.observer.ObserveTelegramMessage("out", kind)
	return nil
}

func isEntityParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "parse entities")
	}
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}
