package api

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/email/mocks"
)

var linkPattern = regexp.MustCompile(`href="([^"]+)"`)

func TestManageRequiresLogin(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/Identity/Account/Manage")
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/Identity/Account/Login?ReturnUrl=%2FIdentity%2FAccount%2FManage", res.Header.Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.login(testAdminUser, "wrong-password1")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "Invalid login attempt.")
	assert.Nil(t, app.cookie("MyAuthCookie"))

	res = app.postForm("/Identity/Account/Login", url.Values{
		"UserName": {testAdminUser},
		"Password": {testAdminPassword},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, "missing anti-forgery token")
}

func TestLoginAndLogout(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	token := app.formToken("/Identity/Account/Login")
	res := app.postForm("/Identity/Account/Login?ReturnUrl=%2FIdentity%2FAccount%2FManage", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {testAdminUser},
		"Password":                   {testAdminPassword},
	})
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/Identity/Account/Manage", res.Header.Get("Location"))

	cookie := app.cookie("MyAuthCookie")
	require.NotNil(t, cookie)

	res = app.get("/Identity/Account/Manage")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "Hello admin!")
	assert.Contains(t, res.Body, "admin@example.com (confirmed)")
	assert.Contains(t, res.Body, "Roles: Admin")

	token = app.formToken("/Identity/Account/Manage")
	res = app.postForm("/Identity/Account/Logout", url.Values{"__RequestVerificationToken": {token}})
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Nil(t, app.cookie("MyAuthCookie"))

	res = app.get("/Identity/Account/Manage")
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

func TestLoginRejectsExternalReturnURL(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	token := app.formToken("/Identity/Account/Login")
	res := app.postForm("/Identity/Account/Login?ReturnUrl=https%3A%2F%2Fevil.example", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {testAdminUser},
		"Password":                   {testAdminPassword},
	})
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
}

func TestRegisterConfirmAndLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	var body string
	sender.EXPECT().
		SendEmail(gomock.Any(), "reader@example.com", "Confirm your email", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, htmlMessage string) error {
			body = htmlMessage
			return nil
		})

	app := newTestAppWithSender(t, config.EnvironmentProduction, sender)

	token := app.formToken("/Identity/Account/Register")
	res := app.postForm("/Identity/Account/Register", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {"reader"},
		"Email":                      {"reader@example.com"},
		"Password":                   {"password1"},
		"ConfirmPassword":            {"password1"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "Please check your email to confirm your account.")

	res = app.login("reader", "password1")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "You must confirm your email before you can log in.")

	m := linkPattern.FindStringSubmatch(body)
	require.NotNil(t, m, body)
	link := html.UnescapeString(m[1])
	require.True(t, strings.HasPrefix(link, "/Identity/Account/ConfirmEmail?"), link)

	res = app.get(link)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "Thank you for confirming your email.")

	res = app.login("reader", "password1")
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.NotNil(t, app.cookie("MyAuthCookie"))
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	token := app.formToken("/Identity/Account/Register")
	res := app.postForm("/Identity/Account/Register", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {"reader"},
		"Email":                      {"reader@example.com"},
		"Password":                   {"password1"},
		"ConfirmPassword":            {"password2"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "do not match")

	res = app.postForm("/Identity/Account/Register", url.Values{
		"__RequestVerificationToken": {token},
		"UserName":                   {testAdminUser},
		"Email":                      {"other@example.com"},
		"Password":                   {"password1"},
		"ConfirmPassword":            {"password1"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "user name is already taken")
}

func TestConfirmEmailWithBadCode(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/Identity/Account/ConfirmEmail?userId=missing&code=bad")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "Error confirming your email.")

	res = app.get("/Identity/Account/ConfirmEmail")
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

func TestAccessDeniedPage(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	res := app.get("/Identity/Account/AccessDenied")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "You do not have access to this resource.")
}

func TestUnreadableAccountFormsRenderPage(t *testing.T) {
	app := newTestApp(t, config.EnvironmentProduction)

	for path, handle := range map[string]http.HandlerFunc{
		"/Identity/Account/Login":    app.handler.Login,
		"/Identity/Account/Register": app.handler.Register,
	} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("UserName=%zz&Password=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		assert.Contains(t, rec.Body.String(), "The submitted values are not valid.", path)
		assert.Contains(t, rec.Body.String(), "<form", path)
	}
}
