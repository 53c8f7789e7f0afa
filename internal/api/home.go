package api

import (
	"net/http"

	"github.com/mydemos/lms/internal/web"
)

func (h *Handler) homeController() Controller {
	return Controller{
		Name: "Home",
		Actions: []Action{
			{Name: "Index", Handler: http.HandlerFunc(h.HomeIndex)},
			{Name: "Privacy", Handler: http.HandlerFunc(h.HomePrivacy)},
		},
	}
}

func (h *Handler) HomeIndex(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageHomeIndex, web.Page{Title: "Home Page"})
}

func (h *Handler) HomePrivacy(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageHomePrivacy, web.Page{Title: "Privacy Policy"})
}

// Error is the generic error page. The exception handler renders it with
// status 500.
func (h *Handler) Error(w http.ResponseWriter, r *http.Request) {
	h.renderErrorPage(w, r, http.StatusOK)
}

func (h *Handler) renderErrorPage(w http.ResponseWriter, r *http.Request, status int) {
	w.Header().Set("Cache-Control", "no-store")
	h.views.Render(w, r, status, web.PageError, web.Page{Title: "Error"})
}
