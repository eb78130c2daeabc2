// Package api exposes the studio and its catalog as a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/studio"
)

type Options struct {
	Catalog   *catalog.Store
	Studio    *studio.Studio
	Generator catalog.Generator
	Logger    *slog.Logger
}

type Server struct {
	catalog *catalog.Store
	studio  *studio.Studio
	gen     catalog.Generator
	logger  *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		catalog: opts.Catalog,
		studio:  opts.Studio,
		gen:     opts.Generator,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, s.requestLogger)

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Post("/generate", s.generate)
		r.Post("/reset", s.reset)

		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Post("/video", s.requestVideo)
			r.Put("/display", s.setDisplay)
			r.Post("/identity-lock", s.lockIdentity)
			r.Post("/promote", s.promote)
		})

		r.Get("/catalog", s.listCatalog)
		r.Route("/catalog/{kind}", func(r chi.Router) {
			r.Post("/", s.uploadItem)
			r.Post("/generate", s.generateItem)
			r.Delete("/{itemID}", s.deleteItem)
		})

		r.Put("/picks", s.setPicks)
		r.Delete("/identity-lock", s.clearIdentity)

		r.Get("/lookbook", s.listLookbook)
		r.Post("/lookbook", s.saveLookbook)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func (s *Server) error(w http.ResponseWriter, status int, code, message string) {
	s.json(w, status, errorResponse{Code: code, Message: message})
}

// fail maps domain errors to HTTP responses.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		verr *studio.ValidationError
		aerr *asset.InvalidAssetError
	)
	switch {
	case errors.As(err, &verr):
		s.json(w, http.StatusBadRequest, errorResponse{Code: "validation", Message: verr.Error(), Missing: verr.Missing})
	case errors.As(err, &aerr):
		s.error(w, http.StatusBadRequest, "invalid_asset", aerr.Error())
	case errors.Is(err, studio.ErrUnknownTier):
		s.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, studio.ErrJobNotFound), errors.Is(err, catalog.ErrNotFound):
		s.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, studio.ErrBusy),
		errors.Is(err, studio.ErrVideoInFlight),
		errors.Is(err, studio.ErrVideoPromptPending),
		errors.Is(err, studio.ErrNoVideoPrompt),
		errors.Is(err, studio.ErrNoImages),
		errors.Is(err, studio.ErrNotSettled),
		errors.Is(err, studio.ErrInvalidDisplay):
		s.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, studio.ErrClosed):
		s.error(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		s.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
