package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydemos/lms/internal/api"
	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/email"
	"github.com/mydemos/lms/internal/identity"
	"github.com/mydemos/lms/internal/model"
)

const signingKey = "integration-signing-key"

type webApp struct {
	server *httptest.Server
	users  *identity.Manager
	cfg    *config.Config
}

func startWebApp(t *testing.T, connString string) *webApp {
	t.Helper()
	ctx := context.Background()

	v := config.New("")
	v.Set("connectionstrings.mydefaultconnectionstring", connString)
	v.Set("auth.signingkey", signingKey)
	v.Set("auth.passwordhashcost", 4)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	provider, err := db.ProviderFromConnectionString(cfg.ConnectionStrings.MyDefaultConnectionString, db.PoolConfig{})
	require.NoError(t, err)
	database, err := db.Connect(ctx, provider)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	h, err := api.NewHandler(cfg, database, email.NewLogSender())
	require.NoError(t, err)
	require.NoError(t, h.Users().Seed(ctx, "librarian", "librarian@example.com", "Librarian1"))

	server := httptest.NewServer(api.SetupRoutes(h))
	t.Cleanup(server.Close)
	return &webApp{server: server, users: h.Users(), cfg: cfg}
}

// authCookie mints the cookie a successful sign-in would set.
func (a *webApp) authCookie(t *testing.T, userName, password string) *http.Cookie {
	t.Helper()
	p, err := a.users.PasswordSignIn(context.Background(), userName, password)
	require.NoError(t, err)

	value, _, err := identity.NewTokenManager([]byte(signingKey)).Issue(p, identity.PurposeAuthCookie, a.cfg.Auth.ExpireTimeSpan)
	require.NoError(t, err)
	return &http.Cookie{Name: a.cfg.Auth.CookieName, Value: value}
}

func (a *webApp) send(t *testing.T, method, path, body string, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(b)
}

func exerciseCategoriesAPI(t *testing.T, app *webApp) {
	t.Helper()

	res, _ := app.send(t, http.MethodPost, "/api/Categories", `{"category_name":"Fiction"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	cookie := app.authCookie(t, "librarian", "Librarian1")

	// Stores that generate identities accept a zero id.
	res, body := app.send(t, http.MethodPost, "/api/Categories", `{"category_name":"Fiction"}`, cookie)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var created model.Category
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	require.NotZero(t, created.CategoryID)
	assert.Equal(t, "Fiction", created.CategoryName)

	location := res.Header.Get("Location")
	res, body = app.send(t, http.MethodGet, location, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"category_name":"Fiction"`)

	res, _ = app.send(t, http.MethodDelete, location, "", cookie)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = app.send(t, http.MethodGet, location, "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestWebAppOverSQLiteFile(t *testing.T) {
	app := startWebApp(t, "sqlite:"+filepath.Join(t.TempDir(), "lms.db"))

	res, body := app.send(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"database":"sqlite"`)

	res, body = app.send(t, http.MethodGet, "/demo/home/index", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Hello world", body)

	exerciseCategoriesAPI(t, app)
}

func TestWebAppRejectsForgedCookie(t *testing.T) {
	app := startWebApp(t, "memory:"+t.Name())

	forged, _, err := identity.NewTokenManager([]byte("some-other-key")).Issue(&identity.Principal{
		UserID:   "intruder",
		UserName: "intruder",
		Roles:    []string{identity.RoleAdmin},
	}, identity.PurposeAuthCookie, time.Hour)
	require.NoError(t, err)

	cookie := &http.Cookie{Name: app.cfg.Auth.CookieName, Value: forged}
	res, _ := app.send(t, http.MethodDelete, "/api/Categories/1", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = app.send(t, http.MethodGet, "/Identity/Account/Manage", "", cookie)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.True(t, strings.HasPrefix(res.Header.Get("Location"), "/Identity/Account/Login?ReturnUrl="))
}
