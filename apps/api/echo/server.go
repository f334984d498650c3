package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/resource"
	"github.com/innovalab/center/core/user"
)

type (
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		Files         core.FileStorage
		UserSvc       *user.Service
		CourseSvc     *course.Service
		ResourceSvc   *resource.Service
		EnrollmentSvc *enrollment.Service
		QuizSvc       *quiz.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     *Deps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps *Deps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.jwt = newJWTConfig(deps.Conf)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	if conf.Server.MaxUploadSize > 0 {
		s.app.Use(middleware.BodyLimit(bodyLimit(conf.Server.MaxUploadSize)))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if conf.Server.UploadURL != "" {
		s.app.Static(conf.Server.UploadURL, conf.Server.UploadDir)
	}

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.jwt)

	s.registerAuthAPI(g)
	s.registerUserAPI(g, jwt)
	s.registerCourseAPI(g, jwt)
	s.registerEnrollmentAPI(g, jwt)
	s.registerResourceAPI(g, jwt)
	s.registerQuizAPI(g, jwt)
}

// Start listens on the configured address until the server is shut down.
// SIGINT and SIGTERM are relayed on ShutdownSignal.
func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, messageResponse{Message: "API " + s.deps.Conf.AppName + " funcionando"})
}
