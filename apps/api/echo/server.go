package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
	appfs "github.com/trezcool/edudesk/fs"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		SchoolSvc  *school.Service
		Translator ut.Translator
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		registry *prometheus.Registry
		shutdown chan os.Signal
		errors   chan error
	}

	// handler holds the dependencies of the request handlers.
	handler struct {
		conf       *core.Config
		usrSvc     *user.Service
		schoolSvc  *school.Service
		translator ut.Translator
		sessions   sessionManager
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) (*Server, error) {
	s := &Server{
		conf:     deps.Conf,
		logger:   deps.Logger,
		app:      echo.New(),
		registry: prometheus.NewRegistry(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	renderer, err := newTemplateRenderer(appfs.FS, appfs.WebTemplatesDir, deps.Conf)
	if err != nil {
		return nil, err
	}

	h := &handler{
		conf:       deps.Conf,
		usrSvc:     deps.UserSvc,
		schoolSvc:  deps.SchoolSvc,
		translator: deps.Translator,
		sessions:   newSessionManager(deps.Conf),
	}
	s.setup(h, renderer)
	return s, nil
}

func (s *Server) setup(h *handler, renderer echo.Renderer) {
	conf := s.conf
	debug := conf.Debug

	s.app.HideBanner = true
	s.app.Debug = debug
	s.app.Renderer = renderer
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, h, s.signalShutdown)

	s.app.Pre(middleware.AddTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(newMetrics(s.registry).middleware)
	if !conf.Server.DisableCSRF {
		s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:" + csrfField,
			ContextKey:     csrfField,
			CookieName:     "csrftoken",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   conf.Server.SecureCookies,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}

	s.app.GET("/", func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusFound, dashboardURL)
	})
	registerAuthRoutes(s.app, h)

	// authed routes
	g := s.app.Group("", h.authMiddleware)
	g.GET("/dashboard/", h.dashboard)
	registerCourseRoutes(g, h)
	registerStudentRoutes(g, h)
	registerTeacherRoutes(g, h)
	registerExamRoutes(g, h)
	registerAttendanceRoutes(g, h)
	registerMarksRoutes(g, h)
}

// Start blocks serving requests. Listener failures are reported on Errors.
func (s *Server) Start() {
	s.logger.Info(fmt.Sprintf("API listening on %s", s.conf.Server.Address))
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// MetricsHandler exposes the server metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}
