package api

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/db/testutils"
	"github.com/mydemos/lms/internal/email"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "Admin1234"
)

type testApp struct {
	t       *testing.T
	handler *Handler
	router  *chi.Mux
	server  *httptest.Server
	client  *http.Client
}

func testConfig(t *testing.T, environment string) *config.Config {
	t.Helper()
	v := config.New("")
	v.Set("environment", environment)
	v.Set("auth.signingkey", "test-signing-key")
	v.Set("auth.passwordhashcost", 4)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

// newTestApp serves the full router over a seeded memory database. The
// admin account exists and is confirmed.
func newTestApp(t *testing.T, environment string) *testApp {
	t.Helper()
	return newTestAppWithSender(t, environment, email.NewLogSender())
}

func newTestAppWithSender(t *testing.T, environment string, sender email.Sender) *testApp {
	t.Helper()
	ctx := context.Background()

	database, err := db.Connect(ctx, db.NewMemoryProvider(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	seed := database.NewContext()
	require.NoError(t, testutils.SeedData(ctx, seed))
	require.NoError(t, seed.Close())

	h, err := NewHandler(testConfig(t, environment), database, sender)
	require.NoError(t, err)
	require.NoError(t, h.Users().Seed(ctx, testAdminUser, "admin@example.com", testAdminPassword))

	router := SetupRoutes(h)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:       t,
		handler: h,
		router:  router,
		server:  server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	*http.Response
	Body string
}

func (a *testApp) do(method, path string, body io.Reader, contentType string) response {
	a.t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(a.t, err)
	return response{Response: res, Body: string(b)}
}

func (a *testApp) get(path string) response {
	return a.do(http.MethodGet, path, nil, "")
}

func (a *testApp) postForm(path string, values url.Values) response {
	return a.do(http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func (a *testApp) sendJSON(method, path, body string) response {
	return a.do(method, path, strings.NewReader(body), "application/json")
}

var tokenPattern = regexp.MustCompile(`name="__RequestVerificationToken" value="([^"]+)"`)

// formToken loads page and returns the anti-forgery token rendered in it.
func (a *testApp) formToken(page string) string {
	a.t.Helper()
	res := a.get(page)
	require.Equal(a.t, http.StatusOK, res.StatusCode, res.Body)
	m := tokenPattern.FindStringSubmatch(res.Body)
	require.NotNil(a.t, m, "page %s has no anti-forgery token", page)
	return m[1]
}

func (a *testApp) login(userName, password string) response {
	a.t.Helper()
	token := a.formToken("/Identity/Account/Login")
	return a.postForm("/Identity/Account/Login", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {userName},
		"Password":                   {password},
	})
}

func (a *testApp) cookie(name string) *http.Cookie {
	u, err := url.Parse(a.server.URL)
	require.NoError(a.t, err)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}
