package api

import (
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mydemos/lms/internal/identity"
)

// hstsMaxAge is the Strict-Transport-Security lifetime sent outside
// development.
const hstsMaxAge = 30 * 24 * time.Hour

func (h *Handler) SetupMiddleware() []func(http.Handler) http.Handler {
	mw := []func(http.Handler) http.Handler{
		// Request ID for tracing
		middleware.RequestID,
		middleware.RealIP,

		// Logging middleware
		middleware.Logger,

		// Replaces middleware.Recoverer
		h.ExceptionHandler,
	}

	if !h.cfg.IsDevelopment() {
		mw = append(mw, HSTS(hstsMaxAge))
	}

	return append(mw,
		middleware.Timeout(h.cfg.Server.RequestTimeout),
		h.auth.Middleware,
		h.forgery.Middleware,
	)
}

// APIMiddleware is applied to the /api subtree only.
func APIMiddleware() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// CORS middleware for public API
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.NoCache,
	}
}

// HSTS sets Strict-Transport-Security on every response.
func HSTS(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Strict-Transport-Security", value)
			next.ServeHTTP(w, r)
		})
	}
}

// ExceptionHandler recovers panics. In development it renders the panic and
// stack trace; otherwise it renders the error page with status 500. Nothing
// is written if the handler already started the response.
func (h *Handler) ExceptionHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := debug.Stack()
			log.Error("Unhandled exception", "panic", rec, "method", r.Method, "path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()))
			log.Debug("Stack trace", "stack", string(stack))

			if ww.Status() != 0 {
				return
			}

			switch {
			case h.cfg.IsDevelopment():
				renderDeveloperExceptionPage(w, r, rec, stack)
			case identity.IsAPIRequest(r):
				h.renderError(w, r, http.StatusInternalServerError, "unhandled exception", fmt.Errorf("panic: %v", rec))
			default:
				h.renderErrorPage(w, r, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

var developerExceptionPage = template.Must(template.New("developer-exception").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <title>Internal Server Error</title>
</head>
<body>
    <h1>An unhandled exception occurred while processing the request.</h1>
    <h2>{{.Panic}}</h2>
    <p>{{.Method}} {{.Path}}{{if .RequestID}} (request {{.RequestID}}){{end}}</p>
    <h3>Stack</h3>
    <pre>{{.Stack}}</pre>
</body>
</html>
`))

func renderDeveloperExceptionPage(w http.ResponseWriter, r *http.Request, rec any, stack []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	err := developerExceptionPage.Execute(w, map[string]any{
		"Panic":     fmt.Sprint(rec),
		"Method":    r.Method,
		"Path":      r.URL.Path,
		"RequestID": middleware.GetReqID(r.Context()),
		"Stack":     string(stack),
	})
	if err != nil {
		log.Error("Failed to render developer exception page", "error", err)
	}
}
