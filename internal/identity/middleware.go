package identity

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/render"
)

// ContextKey represents the type used for context keys
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// CookieOptions mirrors the auth section of the configuration.
type CookieOptions struct {
	Name              string
	LoginPath         string
	LogoutPath        string
	AccessDeniedPath  string
	ExpireTimeSpan    time.Duration
	SlidingExpiration bool
	Secure            bool
}

// CookieAuth issues and validates the authentication cookie.
type CookieAuth struct {
	opts   CookieOptions
	tokens *TokenManager
	// validate, when set, rejects principals whose account changed since
	// the cookie was issued.
	validate func(context.Context, *Principal) error
}

func NewCookieAuth(opts CookieOptions, tokens *TokenManager) *CookieAuth {
	return &CookieAuth{opts: opts, tokens: tokens}
}

// WithValidator returns a copy of a that checks every principal with fn.
func (a *CookieAuth) WithValidator(fn func(context.Context, *Principal) error) *CookieAuth {
	cp := *a
	cp.validate = fn
	return &cp
}

func (a *CookieAuth) Options() CookieOptions { return a.opts }

// SignIn writes a fresh cookie for p.
func (a *CookieAuth) SignIn(w http.ResponseWriter, p *Principal) error {
	token, expires, err := a.tokens.Issue(p, PurposeAuthCookie, a.opts.ExpireTimeSpan)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.opts.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(a.opts.ExpireTimeSpan.Seconds()),
		HttpOnly: true,
		Secure:   a.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debug("Issued auth cookie", "user_name", p.UserName, "expires", expires)
	return nil
}

// SignOut expires the cookie.
func (a *CookieAuth) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.opts.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate returns the principal stored in the request's cookie.
func (a *CookieAuth) Authenticate(r *http.Request) (*Principal, error) {
	cookie, err := r.Cookie(a.opts.Name)
	if err != nil {
		return nil, err
	}
	p, err := a.tokens.Parse(cookie.Value, PurposeAuthCookie)
	if err != nil {
		return nil, err
	}
	if a.validate != nil {
		if err := a.validate(r.Context(), p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Middleware authenticates the cookie when present and adds the principal
// to the request context. Requests without a valid cookie continue
// anonymously. With sliding expiration a cookie past half its lifetime is
// reissued.
func (a *CookieAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				log.Debug("Cookie authentication failed", "error", err, "ip", r.RemoteAddr)
				a.SignOut(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		if a.opts.SlidingExpiration && a.shouldRenew(p) {
			if err := a.SignIn(w, p); err != nil {
				log.Error("Failed to renew auth cookie", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *CookieAuth) shouldRenew(p *Principal) bool {
	remaining := p.ExpiresAt.Sub(a.tokens.now())
	return remaining < a.opts.ExpireTimeSpan/2
}

// RequireAuthenticated redirects anonymous browser requests to the login
// page and answers API requests with 401.
func (a *CookieAuth) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipalFromContext(r.Context()); !ok {
			a.Challenge(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole is like RequireAuthenticated but also requires the role.
// Authenticated users without it are sent to the access denied page or
// get 403 from the API.
func (a *CookieAuth) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				a.Challenge(w, r)
				return
			}
			if !p.IsInRole(role) {
				a.Forbid(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *CookieAuth) Challenge(w http.ResponseWriter, r *http.Request) {
	if IsAPIRequest(r) {
		WriteErrorResponse(w, r, "Authentication required", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, a.opts.LoginPath+"?ReturnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}

func (a *CookieAuth) Forbid(w http.ResponseWriter, r *http.Request) {
	if IsAPIRequest(r) {
		WriteErrorResponse(w, r, "Access denied", http.StatusForbidden)
		return
	}
	http.Redirect(w, r, a.opts.AccessDeniedPath+"?ReturnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}

// IsAPIRequest reports whether r targets the JSON API.
func IsAPIRequest(r *http.Request) bool {
	p := strings.ToLower(r.URL.Path)
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

// LocalReturnURL returns target when it is a local path and fallback
// otherwise.
func LocalReturnURL(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// GetPrincipalFromContext retrieves the authenticated principal from the request context
func GetPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok
}

// RequirePrincipal returns the principal or an AuthError
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := GetPrincipalFromContext(ctx)
	if !ok {
		return nil, &AuthError{Message: "Principal not found in context"}
	}
	return p, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteErrorResponse writes a JSON error response
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}
