package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mydemos/lms/internal/identity"
	"github.com/mydemos/lms/internal/model"
	"github.com/mydemos/lms/internal/swagger"
	"github.com/mydemos/lms/internal/web"
)

func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	for _, middleware := range h.SetupMiddleware() {
		r.Use(middleware)
	}

	conventions := NewConventions(http.HandlerFunc(h.NotFound))
	r.NotFound(conventions.NotFound)

	// Health check endpoint
	r.Get("/health", h.HealthCheck)
	r.Get("/Error", h.Error)

	static := web.Static()
	r.Handle("/css/*", static)
	r.Handle("/js/*", static)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		for _, middleware := range APIMiddleware() {
			r.Use(middleware)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))
		h.RegisterLibraryRoutes(r)
	})

	h.RegisterAccountRoutes(r)

	// {area}/{controller=Home}/{action=Index}/{id?} first, then the
	// default route.
	conventions.Map(r, h.demoController(), h.homeController())

	sw := h.cfg.Swagger
	r.Get(sw.EndpointURL, swagger.DocumentHandler(r, swagger.Options{
		Info: openapi3.Info{
			Title:       sw.Title,
			Version:     sw.Version,
			Description: sw.Description,
		},
		PathPrefix: "/api",
		Resources: map[string]any{
			"Categories": model.Category{},
			"Books":      model.Book{},
			"Authors":    model.Author{},
		},
		ErrorModel: identity.ErrorResponse{},
		CookieName: h.cfg.Auth.CookieName,
	}))
	r.Get("/swagger/index.html", swagger.UIHandler(swagger.UIOptions{
		Title:        sw.Title,
		EndpointURL:  sw.EndpointURL,
		EndpointName: sw.EndpointName,
	}))
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})

	return r
}
