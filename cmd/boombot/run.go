package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"boombot/internal/api"
	"boombot/internal/config"
	"boombot/internal/logging"
	"boombot/internal/metrics"
	"boombot/internal/telegram"
	"boombot/pkg/boombot"
)

const shutdownTimeout = 10 * time.Second

var getppid = os.Getppid
var sleep = time.Sleep

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDataDir(); err != nil {
				return err
			}

			logger, writer, err := logging.NewLogger(logging.Options{
				Dir:    cfg.Log.Dir,
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			defer func() {
				if err := writer.Close(); err != nil {
					logger.Error("failed to close log writer", "err", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if os.Getenv("BOOMBOT_PARENT_WATCH") == "1" {
				go watchParent(ctx, logger, stop)
			}

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("boombot stopped with error", "err", err)
				return err
			}
			logger.Info("boombot stopped")
			return nil
		},
	}
}

// run wires the generator, advisor and transports and blocks until ctx is
// cancelled or a transport fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("boombot starting", "version", version, "config", cfg.Redacted())

	collector, err := metrics.New(true)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	genCfg := cfg.GeneratorConfig()
	genCfg.Logger = logger
	generator, err := boombot.NewGenerator(genCfg)
	if err != nil {
		return err
	}

	advisor, err := boombot.NewAdvisor(boombot.AdvisorOptions{
		Vocabulary:     cfg.Vocabulary(),
		Generator:      generator,
		Logger:         logger,
		Observer:       collector,
		RequestTimeout: cfg.Generator.RequestTimeout,
		StocksPerReply: cfg.Generator.StocksPerReply,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewFromToken(cfg.Telegram.Token, cfg.Telegram.Debug, telegram.Options{
			Recommender:   advisor,
			Vocabulary:    advisor.Matcher().Vocabulary(),
			Logger:        logger,
			Observer:      collector,
			Workers:       cfg.Telegram.Workers,
			RatePerMinute: cfg.Telegram.RatePerMinute,
			RateBurst:     cfg.Telegram.RateBurst,
			PollTimeout:   cfg.Telegram.PollTimeout,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return bot.Run(ctx)
		})
	}

	if cfg.HTTP.Enabled {
		server := newHTTPServer(cfg.HTTP.Addr, api.NewRouter(api.Options{
			Advisor:        advisor,
			Logger:         logger.With("component", "http"),
			Metrics:        collector,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}))
		g.Go(func() error {
			logger.Info("server starting", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           middleware.Compress(5)(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// watchParent stops the process once it has been reparented to init.
func watchParent(ctx context.Context, logger *slog.Logger, stop func()) {
	for {
		if ctx.Err() != nil {
			return
		}
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			stop()
			return
		}
	}
}
