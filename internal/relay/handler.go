package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// Handler serves registry lookups over HTTP.
type Handler struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewHandler builds the relay handler.
func NewHandler(fetcher Fetcher, logger *zap.Logger) *Handler {
	return &Handler{fetcher: fetcher, logger: logger}
}

// Router mounts the relay routes. requestsPerIP caps each caller per minute; zero disables the cap.
func (h *Handler) Router(requestsPerIP int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	r.Group(func(r chi.Router) {
		if requestsPerIP > 0 {
			r.Use(httprate.LimitByIP(requestsPerIP, time.Minute))
		}
		r.Get("/registry/{taxID}", h.lookup)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	taxID, err := domain.NormalizeTaxID(chi.URLParam(r, "taxID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid tax id")
		return
	}

	company, err := h.fetcher.Fetch(r.Context(), taxID)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			h.logger.Warn("registry upstream rejected lookup",
				zap.String("tax_id", taxID),
				zap.Int("status", upstreamErr.Status),
				zap.String("message", upstreamErr.Message),
				zap.NamedError("cause", upstreamErr.Cause),
			)
			h.respondError(w, upstreamErr.Status, upstreamErr.Message)
			return
		}
		h.logger.Error("registry lookup failed", zap.String("tax_id", taxID), zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "registry unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, company)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request completed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
