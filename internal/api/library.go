package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/model"
)

// RegisterLibraryRoutes mounts the JSON API controllers on r. Mutations
// require a signed-in user.
func (h *Handler) RegisterLibraryRoutes(r chi.Router) {
	r.Route("/Categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireAuthenticated)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})

	r.Route("/Books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.Get("/{id}", h.GetBook)
	})

	r.Route("/Authors", func(r chi.Router) {
		r.Get("/", h.ListAuthors)
		r.Get("/{id}", h.GetAuthor)
	})
}

func parseID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	c := h.database.NewContext()
	defer c.Close()

	categories, err := c.Categories().All(r.Context())
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to list categories", err)
		return
	}
	render.JSON(w, r, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	c := h.database.NewContext()
	defer c.Close()

	category, err := c.Categories().Find(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "category not found", nil)
		return
	}
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to get category", err)
		return
	}
	render.JSON(w, r, category)
}

func decodeCategory(r *http.Request) (*model.Category, error) {
	var category model.Category
	if err := render.DecodeJSON(r.Body, &category); err != nil {
		return nil, errors.New("invalid request body")
	}
	category.CategoryName = strings.TrimSpace(category.CategoryName)
	if category.CategoryName == "" {
		return nil, errors.New("category_name is required")
	}
	return &category, nil
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	category, err := decodeCategory(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	c := h.database.NewContext()
	defer c.Close()

	c.Categories().Add(category)
	if _, err := c.SaveChanges(r.Context()); err != nil {
		switch {
		case errors.Is(err, db.ErrIdentityRequired):
			h.renderError(w, r, http.StatusBadRequest, "category_id is required by this store", nil)
		case errors.Is(err, db.ErrUniqueViolation):
			h.renderError(w, r, http.StatusBadRequest, "category already exists", nil)
		default:
			h.renderError(w, r, http.StatusInternalServerError, "failed to create category", err)
		}
		return
	}

	log.Info("Category created", "category_id", category.CategoryID, "name", category.CategoryName)
	w.Header().Set("Location", fmt.Sprintf("/api/Categories/%d", category.CategoryID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	category, err := decodeCategory(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if category.CategoryID != 0 && category.CategoryID != id {
		h.renderError(w, r, http.StatusBadRequest, "category_id does not match the route", nil)
		return
	}
	category.CategoryID = id

	c := h.database.NewContext()
	defer c.Close()

	c.Categories().Update(category)
	if _, err := c.SaveChanges(r.Context()); err != nil {
		if errors.Is(err, db.ErrConcurrencyConflict) {
			h.renderError(w, r, http.StatusNotFound, "category not found", nil)
			return
		}
		h.renderError(w, r, http.StatusInternalServerError, "failed to update category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	c := h.database.NewContext()
	defer c.Close()

	category, err := c.Categories().Find(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "category not found", nil)
		return
	}
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to get category", err)
		return
	}

	c.Categories().Remove(category)
	if _, err := c.SaveChanges(r.Context()); err != nil {
		switch {
		case errors.Is(err, db.ErrForeignKeyViolation):
			h.renderError(w, r, http.StatusBadRequest, "category is referenced by books", nil)
		case errors.Is(err, db.ErrConcurrencyConflict):
			h.renderError(w, r, http.StatusNotFound, "category not found", nil)
		default:
			h.renderError(w, r, http.StatusInternalServerError, "failed to delete category", err)
		}
		return
	}

	log.Info("Category deleted", "category_id", id)
	render.JSON(w, r, category)
}

// ListBooks returns every book, or only those of ?categoryId= or ?authorId=.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	c := h.database.NewContext()
	defer c.Close()

	var (
		books []model.Book
		err   error
	)
	switch {
	case r.URL.Query().Has("categoryId"):
		id, convErr := strconv.Atoi(r.URL.Query().Get("categoryId"))
		if convErr != nil {
			h.renderError(w, r, http.StatusBadRequest, "invalid categoryId", nil)
			return
		}
		books, err = c.Books().Where(r.Context(), "category_id", id)
	case r.URL.Query().Has("authorId"):
		id, convErr := strconv.Atoi(r.URL.Query().Get("authorId"))
		if convErr != nil {
			h.renderError(w, r, http.StatusBadRequest, "invalid authorId", nil)
			return
		}
		books, err = c.Books().Where(r.Context(), "author_id", id)
	default:
		books, err = c.Books().All(r.Context())
	}
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to list books", err)
		return
	}
	render.JSON(w, r, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	c := h.database.NewContext()
	defer c.Close()

	book, err := c.Books().Find(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "book not found", nil)
		return
	}
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to get book", err)
		return
	}
	render.JSON(w, r, book)
}

func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	c := h.database.NewContext()
	defer c.Close()

	authors, err := c.Authors().All(r.Context())
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to list authors", err)
		return
	}
	render.JSON(w, r, authors)
}

func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	c := h.database.NewContext()
	defer c.Close()

	author, err := c.Authors().Find(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "author not found", nil)
		return
	}
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "failed to get author", err)
		return
	}
	render.JSON(w, r, author)
}
