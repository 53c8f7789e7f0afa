// Package web holds the HTML views and static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mydemos/lms/internal/antiforgery"
	"github.com/mydemos/lms/internal/identity"
)

//go:embed templates
var templateFS embed.FS

//go:embed wwwroot
var staticFS embed.FS

// Page names. Each maps to templates/<name>.html rendered inside the shared
// layout.
const (
	PageHomeIndex           = "home/index"
	PageHomePrivacy         = "home/privacy"
	PageError               = "shared/error"
	PageNotFound            = "shared/notfound"
	PageDemoIndex2          = "demo/index2"
	PageDemoDisplayCustomer = "demo/displaycustomer"
	PageLogin               = "account/login"
	PageRegister            = "account/register"
	PageRegisterConfirm     = "account/registerconfirmation"
	PageConfirmEmail        = "account/confirmemail"
	PageAccessDenied        = "account/accessdenied"
	PageManage              = "account/manage"
)

var pages = []string{
	PageHomeIndex,
	PageHomePrivacy,
	PageError,
	PageNotFound,
	PageDemoIndex2,
	PageDemoDisplayCustomer,
	PageLogin,
	PageRegister,
	PageRegisterConfirm,
	PageConfirmEmail,
	PageAccessDenied,
	PageManage,
}

// Page is the data every view receives.
type Page struct {
	Title     string
	Model     any
	Errors    []string
	ReturnURL string

	// Filled by Render.
	User             *identity.Principal
	AntiforgeryField string
	AntiforgeryToken string
	Environment      string
	RequestID        string
	Year             int
}

// Renderer executes the embedded views.
type Renderer struct {
	templates   map[string]*template.Template
	environment string
}

func NewRenderer(environment string) (*Renderer, error) {
	v := &Renderer{
		templates:   make(map[string]*template.Template),
		environment: environment,
	}

	funcMap := template.FuncMap{
		"formatTime":    func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
		"formatDecimal": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	}

	for _, name := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS,
			"templates/shared/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = tmpl
	}

	log.Debug("Views loaded", "count", len(v.templates))
	return v, nil
}

// Render writes the named page with status. Output is buffered so a
// template error still yields a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := v.templates[name]
	if !ok {
		log.Error("Unknown view", "view", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	page.User, _ = identity.GetPrincipalFromContext(r.Context())
	page.AntiforgeryField = antiforgery.FieldName
	page.AntiforgeryToken = antiforgery.Token(r)
	page.Environment = v.environment
	page.RequestID = middleware.GetReqID(r.Context())
	page.Year = time.Now().Year()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		log.Error("Failed to render view", "view", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug("Failed to write view", "view", name, "error", err)
	}
}

// Static serves the embedded wwwroot directory.
func Static() http.Handler {
	root, err := fs.Sub(staticFS, "wwwroot")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(root))
}
