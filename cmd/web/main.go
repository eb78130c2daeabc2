package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fashion-studio/internal/api"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/config"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/httpclient"
	"fashion-studio/internal/logging"
	"fashion-studio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

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

	store := catalog.NewStore()
	if cfg.CatalogFile != "" {
		n, err := store.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Error("catalog load failed", "file", cfg.CatalogFile, "err", err)
			os.Exit(1)
		}
		logger.Info("catalog loaded", "file", cfg.CatalogFile, "items", n)
	}

	st, err := studio.New(studio.Options{
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
		OnEvent: func(ev studio.Event) {
			logger.Debug("studio event", "kind", ev.Kind, "run", ev.RunID, "job", ev.Job.ID)
		},
	})
	if err != nil {
		logger.Error("studio init failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	srv := &http.Server{
		Addr: cfg.WebAddr,
		Handler: api.New(api.Options{
			Catalog:   store,
			Studio:    st,
			Generator: gem,
			Logger:    logger,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown failed", "err", err)
		}
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "angles", len(cfg.Angles))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down")
}
