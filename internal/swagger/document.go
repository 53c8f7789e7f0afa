// Package swagger generates the OpenAPI document for the JSON API from the
// chi route tree and serves it together with a Swagger UI page.
package swagger

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/go-chi/chi/v5"
)

const openAPIVersion = "3.0.1"

// Options controls document generation.
type Options struct {
	Info openapi3.Info
	// PathPrefix selects the routes to document, for example "/api".
	PathPrefix string
	// Resources maps the first path segment after PathPrefix to the model
	// returned and accepted by that resource.
	Resources map[string]any
	// ErrorModel is the body of 4xx responses.
	ErrorModel any
	// CookieName, when set, marks every non-GET operation as requiring the
	// auth cookie.
	CookieName string
}

const securitySchemeName = "cookieAuth"

var paramPattern = regexp.MustCompile(`\{([^}:]+)(:[^}]*)?\}`)

type builder struct {
	doc *openapi3.T
}

// Build walks routes and returns the document for the routes under
// opts.PathPrefix.
func Build(routes chi.Routes, opts Options) (*openapi3.T, error) {
	info := opts.Info
	b := &builder{doc: &openapi3.T{
		OpenAPI: openAPIVersion,
		Info:    &info,
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:         openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{},
		},
	}}

	if opts.CookieName != "" {
		b.doc.Components.SecuritySchemes[securitySchemeName] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "apiKey", In: "cookie", Name: opts.CookieName},
		}
	}

	var errorRef *openapi3.SchemaRef
	if opts.ErrorModel != nil {
		ref, err := b.register(opts.ErrorModel)
		if err != nil {
			return nil, err
		}
		errorRef = ref
	}

	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if method == http.MethodOptions || method == http.MethodHead {
			return nil
		}
		if route != opts.PathPrefix && !strings.HasPrefix(route, opts.PathPrefix+"/") {
			return nil
		}
		if strings.HasSuffix(route, "/*") {
			return nil
		}
		route = strings.TrimSuffix(route, "/")

		path, params := pathParameters(route)
		tag := resourceTag(route, opts.PathPrefix)
		byID := len(params) > 0

		var model *openapi3.SchemaRef
		if m, ok := opts.Resources[tag]; ok {
			ref, err := b.register(m)
			if err != nil {
				return err
			}
			model = ref
		}

		op := openapi3.NewOperation()
		op.Tags = []string{tag}
		op.OperationID = operationID(method, tag, byID)
		op.Parameters = params
		op.Responses = conventionResponses(method, byID, model, errorRef)
		if (method == http.MethodPost || method == http.MethodPut) && model != nil {
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(model),
			}
		}
		if opts.CookieName != "" && method != http.MethodGet {
			op.Security = openapi3.NewSecurityRequirements().
				With(openapi3.NewSecurityRequirement().Authenticate(securitySchemeName))
			op.Responses.Set("401", response("Unauthorized", nil))
		}

		item := b.doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			b.doc.Paths.Set(path, item)
		}
		item.SetOperation(method, op)
		return nil
	}

	if err := chi.Walk(routes, walk); err != nil {
		return nil, fmt.Errorf("failed to walk routes: %w", err)
	}
	return b.doc, nil
}

// register adds a component schema generated from the struct value v and
// returns a reference to it.
func (b *builder) register(v any) (*openapi3.SchemaRef, error) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()

	schema, ok := b.doc.Components.Schemas[name]
	if !ok {
		generated, err := openapi3gen.NewSchemaRefForValue(v, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for %s: %w", name, err)
		}
		schema = generated
		b.doc.Components.Schemas[name] = schema
	}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name, Value: schema.Value}, nil
}

func pathParameters(route string) (string, openapi3.Parameters) {
	var params openapi3.Parameters
	path := paramPattern.ReplaceAllStringFunc(route, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		schema := openapi3.NewStringSchema()
		if strings.EqualFold(name, "id") || strings.HasSuffix(name, "ID") || strings.HasSuffix(name, "Id") {
			schema = openapi3.NewInt32Schema()
		}
		params = append(params, &openapi3.ParameterRef{Value: openapi3.NewPathParameter(name).WithSchema(schema)})
		return "{" + name + "}"
	})
	return path, params
}

func resourceTag(route, prefix string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(route, prefix), "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func operationID(method, tag string, byID bool) string {
	id := strings.ToUpper(method[:1]) + strings.ToLower(method[1:]) + tag
	if byID {
		id += "ById"
	}
	return id
}

func response(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	r := openapi3.NewResponse().WithDescription(description)
	if schema != nil {
		r = r.WithJSONSchemaRef(schema)
	}
	return &openapi3.ResponseRef{Value: r}
}

// conventionResponses applies the default API conventions: GET 200 (404
// with an id), POST 201/400, PUT 204/400/404, DELETE 200/404.
func conventionResponses(method string, byID bool, model, errorRef *openapi3.SchemaRef) *openapi3.Responses {
	status := func(code int, description string, schema *openapi3.SchemaRef) openapi3.NewResponsesOption {
		return openapi3.WithStatus(code, response(description, schema))
	}

	var opts []openapi3.NewResponsesOption
	switch method {
	case http.MethodGet:
		switch {
		case byID:
			opts = append(opts, status(200, "Success", model), status(404, "Not Found", errorRef))
		case model != nil:
			list := openapi3.NewArraySchema()
			list.Items = model
			opts = append(opts, status(200, "Success", openapi3.NewSchemaRef("", list)))
		default:
			opts = append(opts, status(200, "Success", nil))
		}
	case http.MethodPost:
		opts = append(opts, status(201, "Created", model), status(400, "Bad Request", errorRef))
	case http.MethodPut:
		opts = append(opts, status(204, "No Content", nil), status(400, "Bad Request", errorRef), status(404, "Not Found", errorRef))
	case http.MethodDelete:
		opts = append(opts, status(200, "Success", model), status(404, "Not Found", errorRef))
	default:
		opts = append(opts, status(200, "Success", nil))
	}
	return openapi3.NewResponses(opts...)
}
