package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/config"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/handlers"
	"fashion-studio/internal/httpclient"
	"fashion-studio/internal/logging"
	"fashion-studio/internal/mediagroup"
	"fashion-studio/internal/session"
	"fashion-studio/internal/studio"
	"fashion-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	gem := gemini.New(gemini.Options{
		APIKey:            cfg.GeminiAPIKey,
		BaseURL:           cfg.GeminiBaseURL,
		APIVersion:        cfg.GeminiAPIVersion,
		ImageModel:        cfg.GeminiImageModel,
		TextModel:         cfg.GeminiTextModel,
		VideoPreviewModel: cfg.VideoPreviewModel,
		VideoFinalModel:   cfg.VideoFinalModel,
		HTTPClient:        httpClient,
		Logger:            logger,
	})

	// The session store delivers events to the handler, which needs the store.
	var handler *handlers.Handler

	sessions := session.NewStore(session.Options{
		NewStudio: func(onEvent func(studio.Event)) (*studio.Studio, error) {
			return studio.New(studio.Options{
				Backend:         gem,
				Logger:          logger,
				Angles:          studio.ParseAngles(cfg.Angles),
				AngleRetries:    cfg.AngleRetries,
				AutoVideo:       cfg.AutoVideo,
				MaxConcurrent:   cfg.MaxConcurrent,
				PollInterval:    cfg.PollInterval,
				MaxPollAttempts: cfg.MaxPollAttempts,
				MaxPollDuration: cfg.MaxPollDuration,
				LookbookMax:     cfg.LookbookMax,
				OnEvent:         onEvent,
			})
		},
		Seed: func(store *catalog.Store) error {
			if cfg.CatalogFile == "" {
				return nil
			}
			_, err := store.LoadFile(cfg.CatalogFile)
			return err
		},
		OnEvent: func(chatID int64, ev studio.Event) {
			handler.Deliver(chatID, ev)
		},
	})
	defer sessions.Close()

	handler = handlers.New(handlers.Options{
		Telegram:        tg,
		Sessions:        sessions,
		Generator:       gem,
		Videos:          gem,
		Logger:          logger,
		DeliveryTimeout: cfg.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbum := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbum,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "angles", len(cfg.Angles))

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
