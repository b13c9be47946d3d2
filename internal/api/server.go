package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/view"
)

const (
	maxFormBodySize = 64 << 10 // 64KB
	stylesheetPath  = "/static/folio.css"
	// DefaultRefresh is how often a loading page re-polls.
	DefaultRefresh = time.Second
)

//go:embed static
var staticFS embed.FS

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Sessions *Sessions
	// Provider backs GET /api/profile.
	Provider profile.Provider
	// Actions receives affordance activations; nil means view.NopActions.
	Actions view.Actions
	// Refresh is the loading page poll interval; zero uses DefaultRefresh.
	Refresh time.Duration
	Logger  *slog.Logger
}

// NewHandler returns the folio HTTP handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Actions == nil {
		deps.Actions = view.NopActions{}
	}
	if deps.Refresh <= 0 {
		deps.Refresh = DefaultRefresh
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/api/profile", handleGetProfile(deps))
	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	r.Get("/", handleOpenView(deps))
	r.Route("/views/{id}", func(r chi.Router) {
		r.Get("/", handleViewPage(deps))
		r.Delete("/", handleCloseView(deps))
		r.Get("/sections", handleViewSections(deps))
		r.Post("/retry", handleRetry(deps))
		r.Post("/actions/{action}", handleAction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Provider.FetchProfile(r.Context())
		if err != nil {
			if errors.Is(err, profile.ErrNotSeeded) {
				httpError(w, http.StatusNotFound, "not_found_error", "profile has not been seeded")
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "failed to load profile: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleOpenView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := deps.Sessions.Open(r.Context())
		http.Redirect(w, r, viewPath(sess.ID), http.StatusSeeOther)
	}
}

func handleViewPage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		opts := view.RenderOptions{
			Base:       viewPath(sess.ID),
			Refresh:    deps.Refresh,
			Stylesheet: stylesheetPath,
		}
		writeHTML(w, deps.Logger, func(buf *bytes.Buffer) error {
			return view.RenderPage(buf, sess.View.Snapshot(), opts)
		})
	}
}

func handleViewSections(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		snap := sess.View.Snapshot()
		w.Header().Set("X-View-Status", snap.Status.String())
		writeHTML(w, deps.Logger, func(buf *bytes.Buffer) error {
			return view.Render(buf, snap, view.RenderOptions{Base: viewPath(sess.ID)})
		})
	}
}

func handleCloseView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Sessions.Remove(chi.URLParam(r, "id")) {
			httpError(w, http.StatusNotFound, "not_found_error", "view session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRetry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		err := sess.View.Retry(r.Context())
		switch {
		case err == nil, errors.Is(err, view.ErrNotFailed):
			// A retry that raced a completed load just shows the current state.
		case errors.Is(err, view.ErrClosed):
			httpError(w, http.StatusNotFound, "not_found_error", "view session is closed")
			return
		default:
			httpError(w, http.StatusInternalServerError, "api_error", "retry failed: %v", err)
			return
		}
		http.Redirect(w, r, viewPath(sess.ID), http.StatusSeeOther)
	}
}

func handleAction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
		if err := r.ParseForm(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid form body: %v", err)
			return
		}

		req := view.ActionRequest{
			Name:  chi.URLParam(r, "action"),
			Index: -1,
			Note:  r.PostFormValue("note"),
		}
		if raw := r.PostFormValue("index"); raw != "" {
			idx, err := strconv.Atoi(raw)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid index %q", raw)
				return
			}
			req.Index = idx
		}

		err := sess.View.Dispatch(r.Context(), deps.Actions, req)
		switch {
		case err == nil:
		case errors.Is(err, view.ErrUnknownAction):
			httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
			return
		case errors.Is(err, view.ErrInvalidTarget):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, view.ErrClosed):
			httpError(w, http.StatusNotFound, "not_found_error", "view session is closed")
			return
		default:
			httpError(w, http.StatusInternalServerError, "api_error", "action %s failed: %v", req.Name, err)
			return
		}

		deps.Logger.Debug("view action", "session", sess.ID, "action", req.Name, "index", req.Index)
		http.Redirect(w, r, viewPath(sess.ID), http.StatusSeeOther)
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, deps Deps) (*Session, bool) {
	sess, ok := deps.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		httpError(w, http.StatusNotFound, "not_found_error", "view session not found")
		return nil, false
	}
	return sess, true
}

func viewPath(id string) string {
	return "/views/" + id
}

// writeHTML buffers the whole render before any header is written.
func writeHTML(w http.ResponseWriter, logger *slog.Logger, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		logger.Error("rendering view", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "failed to render view")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
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
