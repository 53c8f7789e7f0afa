package api

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/mydemos/lms/internal/binding"
	"github.com/mydemos/lms/internal/identity"
	"github.com/mydemos/lms/internal/web"
)

type loginInput struct {
	UserName string `form:"UserName"`
	Password string `form:"Password"`
}

var loginFields = []string{"UserName", "Password"}

type registerInput struct {
	UserName        string `form:"UserName"`
	Email           string `form:"Email"`
	Password        string `form:"Password"`
	ConfirmPassword string `form:"ConfirmPassword"`
}

var registerFields = []string{"UserName", "Email", "Password", "ConfirmPassword"}

// RegisterAccountRoutes mounts the account pages under /Identity/Account.
func (h *Handler) RegisterAccountRoutes(r chi.Router) {
	r.Route("/Identity/Account", func(r chi.Router) {
		r.Get("/Login", h.LoginPage)
		r.Get("/Register", h.RegisterPage)
		r.Get("/ConfirmEmail", h.ConfirmEmail)
		r.Get("/AccessDenied", h.AccessDenied)

		r.Post("/Login", h.Login)
		r.Post("/Register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuthenticated)
			r.Get("/Manage", h.Manage)
			r.Post("/Logout", h.Logout)
		})
	})
}

func returnURL(r *http.Request) string {
	return identity.LocalReturnURL(r.URL.Query().Get("ReturnUrl"), "/")
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageLogin, web.Page{Title: "Log in", ReturnURL: returnURL(r)})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := binding.Form(r, &in, loginFields); err != nil {
		log.Debug("Login form rejected", "error", err)
		h.views.Render(w, r, http.StatusBadRequest, web.PageLogin, web.Page{
			Title:     "Log in",
			ReturnURL: returnURL(r),
			Errors:    []string{invalidFormMessage},
		})
		return
	}

	page := web.Page{Title: "Log in", ReturnURL: returnURL(r), Model: loginInput{UserName: in.UserName}}

	p, err := h.users.PasswordSignIn(r.Context(), in.UserName, in.Password)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		page.Errors = []string{"Invalid login attempt."}
	case errors.Is(err, identity.ErrNotAllowed):
		page.Errors = []string{"You must confirm your email before you can log in."}
	case err != nil:
		log.Error("Sign in failed", "error", err, "user_name", in.UserName)
		page.Errors = []string{"Invalid login attempt."}
	}
	if err != nil {
		h.views.Render(w, r, http.StatusOK, web.PageLogin, page)
		return
	}

	if err := h.auth.SignIn(w, p); err != nil {
		log.Error("Failed to issue auth cookie", "error", err)
		h.renderErrorPage(w, r, http.StatusInternalServerError)
		return
	}

	log.Info("User logged in", "user_name", p.UserName)
	http.Redirect(w, r, page.ReturnURL, http.StatusFound)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageRegister, web.Page{Title: "Register", ReturnURL: returnURL(r)})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := binding.Form(r, &in, registerFields); err != nil {
		log.Debug("Registration form rejected", "error", err)
		h.views.Render(w, r, http.StatusBadRequest, web.PageRegister, web.Page{
			Title:     "Register",
			ReturnURL: returnURL(r),
			Errors:    []string{invalidFormMessage},
		})
		return
	}

	page := web.Page{
		Title:     "Register",
		ReturnURL: returnURL(r),
		Model:     registerInput{UserName: in.UserName, Email: in.Email},
	}

	if in.Password != in.ConfirmPassword {
		page.Errors = []string{"The password and confirmation password do not match."}
		h.views.Render(w, r, http.StatusOK, web.PageRegister, page)
		return
	}

	user, err := h.users.Register(r.Context(), identity.RegisterRequest{
		UserName: in.UserName,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		log.Debug("Registration rejected", "error", err, "user_name", in.UserName)
		page.Errors = []string{err.Error()}
		h.views.Render(w, r, http.StatusOK, web.PageRegister, page)
		return
	}

	if h.cfg.Auth.RequireConfirmedAccount {
		h.views.Render(w, r, http.StatusOK, web.PageRegisterConfirm, web.Page{Title: "Register confirmation"})
		return
	}

	p, err := h.users.PrincipalFor(r.Context(), user)
	if err == nil {
		err = h.auth.SignIn(w, p)
	}
	if err != nil {
		log.Error("Failed to sign in new user", "error", err)
		h.renderErrorPage(w, r, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, page.ReturnURL, http.StatusFound)
}

func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	code := r.URL.Query().Get("code")
	if userID == "" || code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	page := web.Page{Title: "Confirm email"}
	status := http.StatusOK
	if err := h.users.ConfirmEmail(r.Context(), userID, code); err != nil {
		log.Debug("Email confirmation failed", "error", err, "user_id", userID)
		page.Errors = []string{"Error confirming your email."}
		if errors.Is(err, identity.ErrUserNotFound) {
			status = http.StatusNotFound
		}
	}
	h.views.Render(w, r, status, web.PageConfirmEmail, page)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut(w)
	if p, ok := identity.GetPrincipalFromContext(r.Context()); ok {
		log.Info("User logged out", "user_name", p.UserName)
	}
	http.Redirect(w, r, returnURL(r), http.StatusFound)
}

func (h *Handler) AccessDenied(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageAccessDenied, web.Page{Title: "Access denied"})
}

func (h *Handler) Manage(w http.ResponseWriter, r *http.Request) {
	p, err := identity.RequirePrincipal(r.Context())
	if err != nil {
		h.auth.Challenge(w, r)
		return
	}

	user, err := h.users.FindByID(r.Context(), p.UserID)
	if err != nil {
		log.Error("Failed to load account", "error", err, "user_id", p.UserID)
		h.renderErrorPage(w, r, http.StatusInternalServerError)
		return
	}
	h.views.Render(w, r, http.StatusOK, web.PageManage, web.Page{Title: "Manage your account", Model: user})
}
