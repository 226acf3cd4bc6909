package echoapi

import (
	"context"
	"io"
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

	"github.com/trezcool/campus/apps/shared"
	"github.com/trezcool/campus/core"
	metricsvc "github.com/trezcool/campus/services/metrics"
)

type (
	// HealthCheck reports whether a backing service is reachable.
	HealthCheck func(ctx context.Context) error

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Services       *shared.Services
		Broker         core.EventBroker
		Metrics        *metricsvc.Metrics     // optional
		HealthChecks   map[string]HealthCheck // optional
		DisableReqLogs bool
		ReqLogOutput   io.Writer // optional, defaults to stdout
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// reqLogFormat logs the path without the query string, which may carry a token.
const reqLogFormat = `{"time":"${time_rfc3339_nano}","id":"${id}","remote_ip":"${remote_ip}",` +
	`"host":"${host}","method":"${method}","path":"${path}","user_agent":"${user_agent}",` +
	`"status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}"` +
	`,"bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n"

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: reqLogFormat,
			Output: s.deps.ReqLogOutput,
		}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)

	b := &base{
		conf:     conf,
		logger:   s.deps.Logger,
		validate: s.deps.Validate,
		svcs:     s.deps.Services,
	}
	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	limiter := newIPRateLimiter(conf.Server.RateLimitPerMinute).middleware()

	registerUserAPI(g, jwt, limiter, b)
	registerStudentAPI(g, jwt, b)
	registerTeacherAPI(g, jwt, b)
	registerParentAPI(g, jwt, b)
	registerAttendanceAPI(g, jwt, b)
	registerFeeAPI(g, jwt, b)
	registerTimetableAPI(g, jwt, b)
	registerCourseAPI(g, jwt, b)
	registerExamAPI(g, jwt, b)
	registerCommunicationAPI(g, jwt, b)
	registerLibraryAPI(g, jwt, b)
	registerReportAPI(g, jwt, b)
	registerSettingsAPI(g, jwt, b)
	registerEventAPI(g, middleware.JWTWithConfig(jwtConfig(conf, "query:token")), b, s.deps.Broker)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
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

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

type healthResponse struct {
	Status   string            `json:"status"`
	Build    string            `json:"build"`
	Services map[string]string `json:"services"`
}

func (s *server) healthz(ctx echo.Context) error {
	c, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Build: s.deps.Conf.Build, Services: make(map[string]string, len(s.deps.HealthChecks))}
	code := http.StatusOK
	for name, check := range s.deps.HealthChecks {
		if err := check(c); err != nil {
			s.deps.Logger.Warn("health check failed", err, map[string]interface{}{"service": name})
			resp.Services[name] = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Services[name] = "ok"
	}
	return ctx.JSON(code, resp)
}
