package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/render"

	"github.com/mydemos/lms/internal/binding"
	"github.com/mydemos/lms/internal/model"
	"github.com/mydemos/lms/internal/web"
)

// demoController is the Home controller of the Demo area.
func (h *Handler) demoController() Controller {
	return Controller{
		Area: "Demo",
		Name: "Home",
		Actions: []Action{
			{Name: "Index", Handler: http.HandlerFunc(h.DemoIndex)},
			{Name: "Index2", Handler: http.HandlerFunc(h.DemoIndex2)},
			{Name: "DisplayCustomer", Handler: http.HandlerFunc(h.DisplayCustomer)},
			{Name: "DisplayCustomer", Method: http.MethodPost, Handler: http.HandlerFunc(h.PostDisplayCustomer)},
		},
	}
}

func (h *Handler) DemoIndex(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "Hello world")
}

func (h *Handler) DemoIndex2(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, web.PageDemoIndex2, web.Page{Title: "Index2"})
}

func (h *Handler) DisplayCustomer(w http.ResponseWriter, r *http.Request) {
	vm := model.CustomerViewModel{
		CustomerID: 1,
		CreatedOn:  time.Now(),
	}
	h.views.Render(w, r, http.StatusOK, web.PageDemoDisplayCustomer, web.Page{Title: "Customer", Model: vm})
}

// PostDisplayCustomer binds only binding.CustomerFields; anything else
// posted, CreatedOn included, is ignored.
func (h *Handler) PostDisplayCustomer(w http.ResponseWriter, r *http.Request) {
	var vm model.CustomerViewModel
	if err := binding.Form(r, &vm, binding.CustomerFields); err != nil {
		log.Debug("Customer form rejected", "error", err)
		h.views.Render(w, r, http.StatusBadRequest, web.PageDemoDisplayCustomer, web.Page{
			Title:  "Customer",
			Model:  vm,
			Errors: []string{invalidFormMessage},
		})
		return
	}
	h.views.Render(w, r, http.StatusOK, web.PageDemoDisplayCustomer, web.Page{Title: "Customer", Model: vm})
}
