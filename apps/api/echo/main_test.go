package echoapi_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/edudesk/apps/api/echo"
	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
	appfs "github.com/trezcool/edudesk/fs"
	"github.com/trezcool/edudesk/internal/testutil"
	emailsvc "github.com/trezcool/edudesk/services/email"
	logsvc "github.com/trezcool/edudesk/services/logger"
	"github.com/trezcool/edudesk/storage/database/sqlxrepos"
)

type testEnv struct {
	t       *testing.T
	server  *echoapi.Server
	db      *sqlx.DB
	usrRepo user.Repository
	svc     *school.Service

	admin   user.User
	teacher user.User
	parent  user.User

	algebra school.Course
	physics school.Course
	student school.Student
	exam    school.Exam
}

func newTestEnv(t *testing.T, configure ...func(conf *core.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()

	conf := testutil.NewConfig()
	for _, fn := range configure {
		fn(conf)
	}
	db := testutil.OpenDB(t)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)

	validate, translator := testutil.NewValidator()
	usrRepo := sqlxrepos.NewUserRepository(db)
	svc := school.NewService(db, sqlxrepos.NewSchoolRepository(db), usrRepo, validate, emailsvc.NewConsoleServiceMock(conf, tmpls, logger), logger, conf)

	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    user.NewService(usrRepo, validate),
		SchoolSvc:  svc,
		Translator: translator,
	})
	require.NoError(t, err)

	e := &testEnv{t: t, server: server, db: db, usrRepo: usrRepo, svc: svc}
	e.admin = testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin)
	e.teacher = testutil.CreateUser(t, usrRepo, "teacher", user.RoleTeacher)
	e.parent = testutil.CreateUser(t, usrRepo, "parent", user.RoleParent)

	e.algebra, err = svc.CreateCourse(ctx, school.CourseForm{Name: "Algebra", Code: "MA101"})
	require.NoError(t, err)
	e.physics, err = svc.CreateCourse(ctx, school.CourseForm{Name: "Physics", Code: "PH101"})
	require.NoError(t, err)
	e.student, err = svc.CreateStudent(ctx, school.StudentForm{UserID: e.parent.ID, RollNumber: "R-001", Courses: []int{e.algebra.ID}})
	require.NoError(t, err)
	_, err = svc.CreateTeacher(ctx, school.TeacherForm{UserID: e.teacher.ID, Courses: []int{e.algebra.ID}})
	require.NoError(t, err)
	e.exam, err = svc.CreateExam(ctx, school.ExamForm{Name: "Midterm", CourseID: e.algebra.ID, Date: "2024-03-01"})
	require.NoError(t, err)
	return e
}

func (e *testEnv) count(table string) int {
	e.t.Helper()
	var n int
	require.NoError(e.t, e.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

// client is a browser-like client keeping the cookies set by the server.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *client {
	return &client{t: e.t, handler: e.server, cookies: make(map[string]*http.Cookie)}
}

// loggedIn returns a client with a session for usr.
func (e *testEnv) loggedIn(usr user.User) *client {
	e.t.Helper()
	c := e.client()
	rec := c.post("/login/", url.Values{"username": {usr.Username}, "password": {testutil.Password}})
	require.Equal(e.t, http.StatusFound, rec.Code, rec.Body.String())
	return c
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, path, form)
}

func location(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get(echo.HeaderLocation)
}
