package api

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/render"

	"github.com/mydemos/lms/internal/antiforgery"
	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/email"
	"github.com/mydemos/lms/internal/identity"
	"github.com/mydemos/lms/internal/web"
)

const serviceName = "lms"

// invalidFormMessage is shown when a posted form cannot be bound.
const invalidFormMessage = "The submitted values are not valid."

// Handler carries the dependencies shared by all controllers.
type Handler struct {
	cfg      *config.Config
	database *db.Database
	users    *identity.Manager
	auth     *identity.CookieAuth
	forgery  *antiforgery.Manager
	views    *web.Renderer
}

// NewHandler wires the identity, anti-forgery and view services over
// database. An empty signing key gets a random one, so cookies do not
// survive a restart.
func NewHandler(cfg *config.Config, database *db.Database, sender email.Sender) (*Handler, error) {
	key := []byte(cfg.Auth.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		log.Warn("No auth.signingkey configured, using a random key")
	}

	views, err := web.NewRenderer(cfg.Environment)
	if err != nil {
		return nil, err
	}

	tokens := identity.NewTokenManager(key)
	users := identity.NewManager(database, identity.Options{
		RequireConfirmedAccount: cfg.Auth.RequireConfirmedAccount,
		PasswordRequiredLength:  cfg.Auth.PasswordRequiredLength,
		HashCost:                cfg.Auth.PasswordHashCost,
		ConfirmEmailURL:         "/Identity/Account/ConfirmEmail",
	}, tokens, sender)

	auth := identity.NewCookieAuth(identity.CookieOptions{
		Name:              cfg.Auth.CookieName,
		LoginPath:         cfg.Auth.LoginPath,
		LogoutPath:        cfg.Auth.LogoutPath,
		AccessDeniedPath:  cfg.Auth.AccessDeniedPath,
		ExpireTimeSpan:    cfg.Auth.ExpireTimeSpan,
		SlidingExpiration: cfg.Auth.SlidingExpiration,
		Secure:            cfg.Auth.CookieSecure,
	}, tokens).WithValidator(users.ValidatePrincipal)

	return &Handler{
		cfg:      cfg,
		database: database,
		users:    users,
		auth:     auth,
		forgery:  antiforgery.New(key, cfg.Auth.CookieSecure, identity.IsAPIRequest),
		views:    views,
	}, nil
}

// Users exposes the identity manager for startup seeding.
func (h *Handler) Users() *identity.Manager { return h.users }

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	if err := h.database.Ping(ctx); err != nil {
		log.Error("Health check failed", "error", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	render.Status(r, code)
	render.JSON(w, r, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"service":   serviceName,
		"database":  h.database.Provider().Dialect().String(),
	})
}

// renderError writes an API error. Internal error text is hidden for 5xx.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		log.Error("API error", "error", err, "message", message, "status", status)
		if status >= 500 {
			message = "Internal server error"
		}
	}
	identity.WriteErrorResponse(w, r, message, status)
}

// NotFound answers API requests with JSON and pages with the not-found view.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if identity.IsAPIRequest(r) {
		h.renderError(w, r, http.StatusNotFound, "resource not found", nil)
		return
	}
	h.views.Render(w, r, http.StatusNotFound, web.PageNotFound, web.Page{Title: "Not found"})
}
