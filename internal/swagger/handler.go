package swagger

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// DocumentHandler serves the document for routes. It is built on the first
// request so it sees every route registered before the server started.
func DocumentHandler(routes chi.Routes, opts Options) http.HandlerFunc {
	var (
		once sync.Once
		doc  *openapi3.T
		err  error
	)
	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			doc, err = Build(routes, opts)
			if err == nil {
				log.Debug("OpenAPI document built", "version", opts.Info.Version, "paths", doc.Paths.Len())
			}
		})
		if err != nil {
			log.Error("Failed to build OpenAPI document", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		render.JSON(w, r, doc)
	}
}

type UIOptions struct {
	Title        string
	EndpointURL  string
	EndpointName string
}

var uiTemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-standalone-preset.js" crossorigin></script>
    <script>
        window.onload = function () {
            window.ui = SwaggerUIBundle({
                urls: [{ url: {{.EndpointURL}}, name: {{.EndpointName}} }],
                dom_id: "#swagger-ui",
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                layout: "StandaloneLayout"
            });
        };
    </script>
</body>
</html>
`))

// UIHandler serves the Swagger UI page listing the document endpoint.
func UIHandler(opts UIOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := uiTemplate.Execute(w, opts); err != nil {
			log.Error("Failed to render Swagger UI", "error", err)
		}
	}
}
