// Package antiforgery protects the HTML forms against cross-site request
// forgery with gorilla/csrf.
package antiforgery

import (
	"crypto/sha256"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/render"
	"github.com/gorilla/csrf"
)

const (
	CookieName = ".MyDemos.Antiforgery"
	FieldName  = "__RequestVerificationToken"
	HeaderName = "RequestVerificationToken"
)

// Manager issues the antiforgery cookie and validates every unsafe request
// that is not exempt.
type Manager struct {
	protect func(http.Handler) http.Handler
	exempt  func(*http.Request) bool
}

// New derives the token key from key. Requests for which exempt returns true
// are passed through untouched.
func New(key []byte, secure bool, exempt func(*http.Request) bool) *Manager {
	authKey := sha256.Sum256(append([]byte("antiforgery:"), key...))

	return &Manager{
		protect: csrf.Protect(authKey[:],
			csrf.CookieName(CookieName),
			csrf.FieldName(FieldName),
			csrf.RequestHeader(HeaderName),
			csrf.Path("/"),
			csrf.HttpOnly(true),
			csrf.Secure(secure),
			csrf.SameSite(csrf.SameSiteStrictMode),
			csrf.ErrorHandler(http.HandlerFunc(rejected)),
		),
		exempt: exempt,
	}
}

func rejected(w http.ResponseWriter, r *http.Request) {
	reason := "invalid antiforgery token"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	log.Warn("Antiforgery validation failed", "error", reason, "path", r.URL.Path, "ip", r.RemoteAddr)
	render.Status(r, http.StatusBadRequest)
	render.PlainText(w, r, "Bad Request: "+reason)
}

// Middleware makes sure every request carries the antiforgery cookie,
// exposes the request token to the views and rejects unsafe requests
// without a matching token with 400.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	protected := m.protect(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exempt != nil && m.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		// Referer checks only apply to requests that arrived over TLS.
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protected.ServeHTTP(w, r)
	})
}

// Token returns the request token for the form being rendered.
func Token(r *http.Request) string {
	return csrf.Token(r)
}
