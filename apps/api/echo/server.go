package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/identity"
	"github.com/eduflick/backend/core/payment"
	"github.com/eduflick/backend/services/telemetry"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Verifier   identity.Verifier // nil when identity is not configured
		Checkout   *payment.Checkout
		Service    enrollment.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps      ServerDeps
		app       *echo.Echo
		startedAt time.Time
		shutdown  chan os.Signal
		errors    chan error
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:      deps,
		app:       echo.New(),
		startedAt: time.Now(),
		shutdown:  make(chan os.Signal, 1),
		errors:    make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(otelecho.Middleware(telemetry.ServiceName))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, adminSecretHeader},
	}))
	s.app.Use(sessionMiddleware(s.deps.Verifier, s.deps.Logger))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.health)
	s.app.GET("/health", s.health)

	api := s.app.Group("/api")
	registerEnrollmentAPI(api, s.deps.Service, s.deps.Validate, conf.Admin.APISecret)
	registerPaymentAPI(api, s.deps.Checkout)
	registerFlowAPI(s.app, api, s.deps.Service, conf.Server.StaticDir)
}

// Start blocks until the server stops; failures other than a regular shutdown land on Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
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

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

type healthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
	Build  string `json:"build"`
	Uptime string `json:"uptime"`
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		App:    s.deps.Conf.AppName,
		Build:  s.deps.Conf.Build,
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}
