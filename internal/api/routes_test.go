package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/model"
)

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/health")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sqlite", body["database"])
}

func TestDemoIndexReturnsHelloWorld(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	for _, path := range []string{"/Demo/Home/Index", "/Demo/Home", "/Demo", "/demo/home/index", "/DEMO"} {
		t.Run(path, func(t *testing.T) {
			res := app.get(path)
			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, "Hello world", res.Body)
			assert.Contains(t, res.Header.Get("Content-Type"), "text/plain")
		})
	}
}

func TestDefaultRoute(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	for _, path := range []string{"/", "/Home", "/Home/Index", "/home/privacy", "/Home/Privacy/5"} {
		res := app.get(path)
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.Contains(t, res.Header.Get("Content-Type"), "text/html", path)
	}

	res := app.get("/Demo/Home/Index2")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "<h1>Index2</h1>")
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/Nope/Nothing")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, res.Body, "Not found")

	res = app.get("/api/Nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/json")
}

func TestDisplayCustomerGet(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/Demo/Home/DisplayCustomer")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, `<dd id="CustomerIdValue">1</dd>`)
	assert.NotContains(t, res.Body, "0001-01-01")
	assert.NotNil(t, app.cookie(".MyDemos.Antiforgery"))
}

func TestDisplayCustomerPostBindsAllowListOnly(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)
	token := app.formToken("/Demo/Home/DisplayCustomer")

	res := app.postForm("/Demo/Home/DisplayCustomer", url.Values{
		"__RequestVerificationToken": {token},
		"CustomerId":                 {"42"},
		"CustomerName":               {"Grace"},
		"Email":                      {"grace@example.com"},
		"Balance":                    {"12.345"},
		"CreatedOn":                  {"1999-12-31T00:00:00Z"},
		"IsAdmin":                    {"true"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode, res.Body)

	assert.Contains(t, res.Body, `<dd id="CustomerIdValue">42</dd>`)
	assert.Contains(t, res.Body, `<dd id="CustomerNameValue">Grace</dd>`)
	assert.Contains(t, res.Body, `<dd id="EmailValue">grace@example.com</dd>`)
	assert.Contains(t, res.Body, `<dd id="BalanceValue">12.345</dd>`)
	assert.Contains(t, res.Body, `<dd id="CreatedOnValue">0001-01-01 00:00:00</dd>`)
	assert.NotContains(t, res.Body, "1999")
}

func TestDisplayCustomerPostRequiresAntiforgery(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)
	app.get("/Demo/Home/DisplayCustomer")

	res := app.postForm("/Demo/Home/DisplayCustomer", url.Values{"CustomerName": {"Mallory"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = app.postForm("/Demo/Home/DisplayCustomer", url.Values{
		"__RequestVerificationToken": {"forged"},
		"CustomerName":               {"Mallory"},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDisplayCustomerPostInvalidNumber(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)
	token := app.formToken("/Demo/Home/DisplayCustomer")

	res := app.postForm("/Demo/Home/DisplayCustomer", url.Values{
		"__RequestVerificationToken": {token},
		"Balance":                    {"lots"},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, res.Body, "The submitted values are not valid.")
}

func TestCategoriesReadOnly(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/api/Categories")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var categories []model.Category
	require.NoError(t, json.Unmarshal([]byte(res.Body), &categories))
	assert.Equal(t, []model.Category{
		{CategoryID: 1, CategoryName: "First Category"},
		{CategoryID: 2, CategoryName: "Second Category"},
		{CategoryID: 3, CategoryName: "Third Category"},
	}, categories)

	res = app.get("/api/Categories/2")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"category_id":2,"category_name":"Second Category"}`, res.Body)

	res = app.get("/api/Categories/99")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, res.Body, `"code":404`)

	res = app.get("/api/Categories/abc")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCategoriesMutationsRequireAuthentication(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.sendJSON(http.MethodPost, "/api/Categories", `{"category_id":4,"category_name":"Poetry"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = app.sendJSON(http.MethodDelete, "/api/Categories/1", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestCategoriesCRUD(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)
	res := app.login(testAdminUser, testAdminPassword)
	require.Equal(t, http.StatusFound, res.StatusCode, res.Body)

	// The memory store needs explicit identities.
	res = app.sendJSON(http.MethodPost, "/api/Categories", `{"category_name":"Poetry"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = app.sendJSON(http.MethodPost, "/api/Categories", `{"category_id":4,"category_name":"Poetry"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode, res.Body)
	assert.Equal(t, "/api/Categories/4", res.Header.Get("Location"))

	res = app.sendJSON(http.MethodPost, "/api/Categories", `{"category_id":4,"category_name":"Again"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = app.sendJSON(http.MethodPut, "/api/Categories/4", `{"category_name":"Verse"}`)
	require.Equal(t, http.StatusNoContent, res.StatusCode, res.Body)
	assert.JSONEq(t, `{"category_id":4,"category_name":"Verse"}`, app.get("/api/Categories/4").Body)

	res = app.sendJSON(http.MethodPut, "/api/Categories/4", `{"category_id":5,"category_name":"Verse"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = app.sendJSON(http.MethodPut, "/api/Categories/77", `{"category_name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = app.sendJSON(http.MethodDelete, "/api/Categories/4", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"category_id":4,"category_name":"Verse"}`, res.Body)

	res = app.sendJSON(http.MethodDelete, "/api/Categories/4", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestBooksAndAuthors(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/api/Books")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `[]`, res.Body)

	res = app.get("/api/Books?categoryId=x")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = app.get("/api/Authors/1")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = app.get("/api/Authors")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `[]`, res.Body)
}

func TestSwaggerDocument(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/swagger/v1/swagger.json")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title       string `json:"title"`
			Version     string `json:"version"`
			Description string `json:"description"`
		} `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &doc))

	assert.Equal(t, "3.0.1", doc.OpenAPI)
	assert.Equal(t, "My new LMS", doc.Info.Title)
	assert.Equal(t, "v1", doc.Info.Version)
	assert.Equal(t, "Library Management System - API Version 1.0", doc.Info.Description)
	assert.Contains(t, doc.Paths, "/api/Categories")
	assert.Contains(t, doc.Paths, "/api/Categories/{id}")
	assert.Contains(t, doc.Paths, "/api/Books/{id}")
	assert.Contains(t, doc.Paths, "/api/Authors")
	assert.Contains(t, doc.Paths["/api/Categories/{id}"], "delete")
	assert.NotContains(t, doc.Paths, "/health")

	res = app.get("/swagger/index.html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "MyLMS Web API v1.0")

	res = app.get("/swagger")
	assert.Equal(t, http.StatusMovedPermanently, res.StatusCode)
}

func TestStaticFiles(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/css/site.css")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = app.get("/js/site.js")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
