package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/errutil"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

const defaultCommitListLimit = 50

type Server struct {
	mux *chi.Mux
}

func safeWrite(w http.ResponseWriter, code int, body []byte) {
	w.WriteHeader(code)

	if _, err := w.Write(body); err != nil {
		logging.Default().Error("fail to write response", slog.Any("error", err))
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		logging.Default().Error("fail to encode response", slog.Any("error", err))
		safeWrite(w, http.StatusInternalServerError, []byte(`{"error":"encoding failure"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safeWrite(w, code, raw)
}

type config struct {
	secret  types.WebhookSecret
	monitor interfaces.Monitor
}

type Option func(*config)

// WithWebhookSecret sets the shared secret for webhook signature validation.
// Without it, deliveries are accepted unsigned.
func WithWebhookSecret(secret types.WebhookSecret) Option {
	return func(cfg *config) {
		cfg.secret = secret
	}
}

// WithMonitor wires the pipeline monitor into the operator endpoints. Without
// it, /api/status and /api/monitor/run return 503.
func WithMonitor(monitor interfaces.Monitor) Option {
	return func(cfg *config) {
		cfg.monitor = monitor
	}
}

func New(uc interfaces.UseCase, options ...Option) *Server {
	cfg := &config{}
	for _, opt := range options {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(preProcess)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		safeWrite(w, http.StatusOK, []byte("ok"))
	})
	r.Route("/webhook", func(r chi.Router) {
		r.Post("/github", func(w http.ResponseWriter, r *http.Request) {
			handleGitHubWebhook(uc, cfg.secret, w, r)
		})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			if cfg.monitor == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "monitor is not configured"})
				return
			}

			st, err := cfg.monitor.Status(r.Context())
			if err != nil {
				errutil.HandleError(r.Context(), "fail to get pipeline status", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, st)
		})
		r.Post("/monitor/run", func(w http.ResponseWriter, r *http.Request) {
			if cfg.monitor == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "monitor is not configured"})
				return
			}

			if err := cfg.monitor.RunOnce(r.Context()); err != nil {
				errutil.HandleError(r.Context(), "fail to run monitor cycle", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cycle failed"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Route("/repos", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				repos, err := uc.ListRepositories(r.Context())
				if err != nil {
					errutil.HandleError(r.Context(), "fail to list repositories", err)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
					return
				}
				writeJSON(w, http.StatusOK, repos)
			})
			r.Get("/{owner}/{name}/commits", func(w http.ResponseWriter, r *http.Request) {
				limit := defaultCommitListLimit
				if v := r.URL.Query().Get("limit"); v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n < 1 {
						writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
						return
					}
					limit = n
				}

				commits, err := uc.ListRepositoryCommits(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "name"), limit)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						writeJSON(w, http.StatusNotFound, map[string]string{"error": "repository not found"})
						return
					}
					errutil.HandleError(r.Context(), "fail to list commits", err)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
					return
				}
				writeJSON(w, http.StatusOK, commits)
			})
		})
	})

	return &Server{
		mux: r,
	}
}

func (x *Server) Mux() *chi.Mux {
	return x.mux
}
