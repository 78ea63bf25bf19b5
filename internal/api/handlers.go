// Package api exposes the application tracker over HTTP and MCP. Both
// surfaces are read-mostly: browsing applications, companies, and event
// history, plus triggering a sync run.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/huntd/internal/storage"
	"github.com/kalambet/huntd/internal/track"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SyncRunner abstracts the ingestion run for the API layer.
type SyncRunner interface {
	Run(ctx context.Context, query string) (track.Summary, error)
}

type AppDeps struct {
	Store        *storage.Store
	Sync         SyncRunner // optional; if nil, POST /sync returns 503
	Token        string
	DefaultQuery string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		// No token means no auth; the server binds to loopback only.
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Get("/applications", handleListApplications(deps))
		r.Get("/applications/{id}", handleGetApplication(deps))
		r.Get("/applications/{id}/events", handleListEvents(deps))
		r.Get("/companies", handleListCompanies(deps))
		r.Post("/sync", handleSync(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func handleListApplications(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			apps []storage.Application
			err  error
		)
		switch r.URL.Query().Get("active") {
		case "true":
			apps, err = deps.Store.ActiveApplications()
		case "false":
			apps, err = deps.Store.InactiveApplications()
		default:
			limit := parseIntParam(r, "limit", 50, 200)
			offset := parseIntParam(r, "offset", 0, 0)
			apps, err = deps.Store.ListApplications(limit, offset)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list applications: %v", err)
			return
		}

		if apps == nil {
			apps = []storage.Application{}
		}
		respondJSON(w, apps)
	}
}

func handleGetApplication(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		app, err := deps.Store.GetApplication(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "application not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get application: %v", err)
			return
		}
		respondJSON(w, app)
	}
}

func handleListEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := deps.Store.GetApplication(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "application not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get application: %v", err)
			return
		}

		events, err := deps.Store.EventsByApplication(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list events: %v", err)
			return
		}

		if events == nil {
			events = []storage.Event{}
		}
		respondJSON(w, events)
	}
}

func handleListCompanies(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companies, err := deps.Store.ListCompanies()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list companies: %v", err)
			return
		}

		if companies == nil {
			companies = []storage.Company{}
		}
		respondJSON(w, companies)
	}
}

type syncRequest struct {
	Query string `json:"query"`
}

func handleSync(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Sync == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "sync is not configured on this server")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// An empty or absent body means "use the default query".
		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			req.Query = deps.DefaultQuery
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
		defer cancel()

		sum, err := deps.Sync.Run(ctx, req.Query)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "sync failed: %v", err)
			return
		}
		respondJSON(w, sum)
	}
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
