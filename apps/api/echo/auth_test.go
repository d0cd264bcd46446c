package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
	"github.com/trezcool/edudesk/internal/testutil"
)

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	inactive := testutil.CreateUser(t, e.usrRepo, "inactive", user.RoleAdmin)
	inactive.IsActive = false
	_, err := e.usrRepo.UpdateUser(context.Background(), inactive)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		next     string
		wantCode int
		wantLoc  string
		wantBody string
	}{
		{name: "success", username: "admin", password: testutil.Password, wantCode: http.StatusFound, wantLoc: "/dashboard/"},
		{name: "next", username: "admin", password: testutil.Password, next: "/courses/", wantCode: http.StatusFound, wantLoc: "/courses/"},
		{name: "external next", username: "admin", password: testutil.Password, next: "//evil.example.com/", wantCode: http.StatusFound, wantLoc: "/dashboard/"},
		{name: "wrong password", username: "admin", password: "wrong-password", wantCode: http.StatusOK, wantBody: "Invalid credentials."},
		{name: "unknown user", username: "nobody", password: testutil.Password, wantCode: http.StatusOK, wantBody: "Invalid credentials."},
		{name: "inactive user", username: "inactive", password: testutil.Password, wantCode: http.StatusOK, wantBody: "Invalid credentials."},
		{name: "short password", username: "admin", password: "abc", wantCode: http.StatusOK, wantBody: "Form validation failed."},
		{name: "non-ascii username", username: "josé", password: testutil.Password, wantCode: http.StatusOK, wantBody: "Invalid credentials."},
		{name: "invalid username", username: "ad min", password: testutil.Password, wantCode: http.StatusOK, wantBody: "Form validation failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.client()
			form := url.Values{"username": {tt.username}, "password": {tt.password}}
			if tt.next != "" {
				form.Set("next", tt.next)
			}
			rec := c.post("/login/", form)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, location(rec))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			_, hasSession := c.cookies["sessionid"]
			assert.Equal(t, tt.wantCode == http.StatusFound, hasSession)
		})
	}

	t.Run("last login is recorded", func(t *testing.T) {
		usr, err := e.usrRepo.GetUser(context.Background(), user.GetFilter{ID: e.admin.ID})
		require.NoError(t, err)
		assert.NotNil(t, usr.LastLogin)
	})
}

func TestLogin_AlreadyAuthenticated(t *testing.T) {
	e := newTestEnv(t)
	c := e.loggedIn(e.teacher)

	rec := c.get("/login/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/", location(rec))
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	c := e.loggedIn(e.admin)

	rec := c.get("/dashboard/")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.post("/logout/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/", location(rec))
	assert.NotContains(t, c.cookies, "sessionid")

	rec = c.get("/dashboard/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next=%2Fdashboard%2F", location(rec))
}

func TestAuthGate(t *testing.T) {
	e := newTestEnv(t)
	c := e.client()

	for _, path := range []string{"/students/", "/students", "/courses/add/", "/marks/", "/dashboard/"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Regexp(t, `^/login/\?next=`, location(rec), path)
		assert.NotContains(t, rec.Body.String(), "R-001", path)
	}
	assert.Equal(t, "/login/?next=%2Fstudents%2F", location(c.get("/students/")))

	// a forged session is ignored
	c.cookies["sessionid"] = &http.Cookie{Name: "sessionid", Value: "forged.token.value"}
	rec := c.get("/students/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotContains(t, c.cookies, "sessionid")

	rec = c.get("/")
	assert.Equal(t, "/dashboard/", location(rec))
}

func TestRoleNotRecognized(t *testing.T) {
	e := newTestEnv(t)
	c := e.loggedIn(e.parent)

	_, err := e.db.Exec(e.db.Rebind("UPDATE users SET role = 'student' WHERE id = ?"), e.parent.ID)
	require.NoError(t, err)

	rec := c.get("/dashboard/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/", location(rec))
	assert.NotContains(t, c.cookies, "sessionid")

	rec = c.get("/login/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Role not recognized.")
}

var csrfInput = regexp.MustCompile(`name="csrf" value="([^"]+)"`)

func TestCSRF(t *testing.T) {
	e := newTestEnv(t, func(conf *core.Config) { conf.Server.DisableCSRF = false })
	c := e.client()
	form := url.Values{"username": {"admin"}, "password": {testutil.Password}}

	rec := c.post("/login/", form)
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.NotContains(t, c.cookies, "sessionid")

	rec = c.get("/login/")
	require.Equal(t, http.StatusOK, rec.Code)
	match := csrfInput.FindStringSubmatch(rec.Body.String())
	require.Len(t, match, 2)

	form.Set("csrf", match[1])
	rec = c.post("/login/", form)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, c.cookies, "sessionid")
}
