package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/scolarite/apps/shared"
	notifysvc "github.com/trezcool/scolarite/services/notify"
)

type (
	Options struct {
		App            *shared.App
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		// Start listens on the configured address; failures are sent on Errors.
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		opts     Options
		app      *shared.App
		echo     *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	s := &server{
		opts:     opts,
		app:      opts.App,
		echo:     echo.New(),
		auth:     newAuthenticator(opts.App.Conf, opts.App.Users),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.app.Conf

	s.echo.HideBanner = true
	s.echo.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.echo.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.echo.Use(metricsMiddleware(s.app.Metrics))

	s.echo.HTTPErrorHandler = newAppHTTPErrorHandler(s.app.Logger, s.signalShutdown)
	s.echo.Debug = conf.Debug && !conf.TestMode

	s.echo.GET("/", s.home)
	s.echo.GET("/metrics", echo.WrapHandler(s.app.Metrics.Handler()))

	v1 := s.echo.Group("/v1")
	jwt := s.auth.middleware()
	persist := persistMiddleware(s.app)

	registerUserAPI(v1, jwt, persist, s.auth, s.app.Users)

	// authed endpoints; mutations are persisted
	ag := v1.Group("", jwt, persist)
	registerSchoolAPI(ag, s.app.School)
	registerEnrollmentAPI(ag, s.auth, s.app.Ledger, s.app.Metrics)
	registerTimetableAPI(ag, s.app.Registry, s.app.Metrics)
	registerGradeAPI(ag, s.auth, s.app.Grades, s.app.Metrics)
	registerExportAPI(ag, s.app)
	ag.GET("/notifications", s.notifications, adminMiddleware())
}

func (s *server) Start() {
	go func() {
		if err := s.echo.Start(s.app.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
			s.errors <- err
		}
	}()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.echo.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.echo.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.echo.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.app.Conf.AppName+" API!")
}

func (s *server) notifications(ctx echo.Context) error {
	items := s.app.Recent.Notifications()
	if items == nil {
		items = []notifysvc.Notification{}
	}
	return ctx.JSON(http.StatusOK, items)
}
