package api

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
)

const (
	defaultController = "Home"
	defaultAction     = "Index"
)

// Action is one controller action. An empty Method means GET.
type Action struct {
	Name    string
	Method  string
	Handler http.Handler
}

// Controller groups actions under a name and an optional area.
type Controller struct {
	Area    string
	Name    string
	Actions []Action
}

type routeKey struct {
	area, controller, action, method string
}

// Conventions maps controllers onto the conventional routes
// {area}/{controller=Home}/{action=Index}/{id?} and
// {controller=Home}/{action=Index}/{id?}. Exact-case paths are registered
// as chi routes; other casings are resolved by NotFound.
type Conventions struct {
	routes   map[routeKey]http.Handler
	paths    map[routeKey]bool
	areas    map[string]bool
	notFound http.Handler
}

func NewConventions(notFound http.Handler) *Conventions {
	return &Conventions{
		routes:   map[routeKey]http.Handler{},
		paths:    map[routeKey]bool{},
		areas:    map[string]bool{},
		notFound: notFound,
	}
}

// Map registers every action of the controllers on r.
func (c *Conventions) Map(r chi.Router, controllers ...Controller) {
	for _, ctrl := range controllers {
		if ctrl.Area != "" {
			c.areas[strings.ToLower(ctrl.Area)] = true
		}
		for _, action := range ctrl.Actions {
			method := action.Method
			if method == "" {
				method = http.MethodGet
			}

			key := routeKey{
				area:       strings.ToLower(ctrl.Area),
				controller: strings.ToLower(ctrl.Name),
				action:     strings.ToLower(action.Name),
			}
			c.paths[key] = true
			key.method = method
			c.routes[key] = action.Handler

			for _, pattern := range conventionPatterns(ctrl.Area, ctrl.Name, action.Name) {
				r.Method(method, pattern, action.Handler)
			}
			log.Debug("Mapped action", "area", ctrl.Area, "controller", ctrl.Name, "action", action.Name, "method", method)
		}
	}
}

func conventionPatterns(area, controller, action string) []string {
	prefix := ""
	if area != "" {
		prefix = "/" + area
	}

	base := prefix + "/" + controller + "/" + action
	patterns := []string{base, base + "/{id}"}
	if action == defaultAction {
		patterns = append(patterns, prefix+"/"+controller)
		if controller == defaultController {
			root := prefix
			if root == "" {
				root = "/"
			}
			patterns = append(patterns, root)
		}
	}
	return patterns
}

// NotFound resolves paths whose casing differs from the registered routes
// and falls back to the not-found handler.
func (c *Conventions) NotFound(w http.ResponseWriter, r *http.Request) {
	key, id, ok := c.resolve(r.URL.Path)
	if !ok || !c.paths[key] {
		c.notFound.ServeHTTP(w, r)
		return
	}

	key.method = r.Method
	h, ok := c.routes[key]
	if !ok && r.Method == http.MethodHead {
		key.method = http.MethodGet
		h, ok = c.routes[key]
	}
	if !ok {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if id != "" {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.URLParams.Add("id", id)
		}
	}
	h.ServeHTTP(w, r)
}

func (c *Conventions) resolve(path string) (routeKey, string, bool) {
	var segments []string
	for s := range strings.SplitSeq(strings.Trim(path, "/"), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	var key routeKey
	if len(segments) > 0 && c.areas[strings.ToLower(segments[0])] {
		key.area = strings.ToLower(segments[0])
		segments = segments[1:]
	}
	if len(segments) > 3 {
		return key, "", false
	}

	key.controller = strings.ToLower(defaultController)
	key.action = strings.ToLower(defaultAction)
	id := ""
	if len(segments) > 0 {
		key.controller = strings.ToLower(segments[0])
	}
	if len(segments) > 1 {
		key.action = strings.ToLower(segments[1])
	}
	if len(segments) > 2 {
		id = segments[2]
	}
	return key, id, true
}
