// Package server exposes the swing analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/swing-coach/internal/analyzer"
	"github.com/sells-group/swing-coach/internal/config"
	"github.com/sells-group/swing-coach/internal/imaging"
	"github.com/sells-group/swing-coach/internal/store"
	"github.com/sells-group/swing-coach/internal/trace"
	"github.com/sells-group/swing-coach/pkg/anthropic"
)

// errBadRequest marks client input errors so wrap can map them to 400.
var errBadRequest = eris.New("bad request")

// Server holds the handler dependencies.
type Server struct {
	analyzer *analyzer.Analyzer
	store    store.Store
	client   anthropic.Client
	recorder *trace.Recorder
	cfg      *config.Config
}

// New builds a Server from its collaborators.
func New(a *analyzer.Analyzer, st store.Store, client anthropic.Client, recorder *trace.Recorder, cfg *config.Config) *Server {
	return &Server{
		analyzer: a,
		store:    st,
		client:   client,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Router assembles the chi router with CORS and all API routes.
func (s *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	mux.Get("/api/health", s.wrap(s.handleHealth))
	mux.Get("/api/health/inference", s.wrap(s.handleInferenceHealth))

	mux.Route("/api/swings", func(rt chi.Router) {
		rt.Post("/analyze", s.wrap(s.handleAnalyze))
		rt.Get("/history", s.wrap(s.handleHistory))
		rt.Get("/{id}", s.wrap(s.handleGet))
		rt.Delete("/{id}", s.wrap(s.handleDelete))
	})

	mux.Route("/api/debug", func(rt chi.Router) {
		rt.Get("/sessions", s.wrap(s.handleDebugSessions))
		rt.Get("/sessions/{requestID}", s.wrap(s.handleDebugSession))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts a handler error into the JSON error taxonomy: client input
// errors map to 400, missing records to 404, everything else to 500.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		label := "internal server error"
		switch {
		case isBadRequest(err):
			status = http.StatusBadRequest
			label = "invalid request"
		case eris.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
			label = "not found"
		}

		if status == http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}

		writeJSON(w, status, map[string]string{
			"error":  label,
			"detail": err.Error(),
		})
	}
}

func isBadRequest(err error) bool {
	return eris.Is(err, errBadRequest) ||
		eris.Is(err, imaging.ErrInvalidFormat) ||
		eris.Is(err, imaging.ErrTooLarge) ||
		eris.Is(err, imaging.ErrCorruptImage)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}
