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
	"go.uber.org/dig"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/assistant"
	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

type Deps struct {
	dig.In

	MemberSvc       *member.Service
	AuditSvc        *audit.Service
	AttendanceSvc   *attendance.Service
	ExcuseSvc       *excuse.Service
	NotificationSvc *notification.Service
	FinanceSvc      *finance.Service
	GradingSvc      *grading.Service
	SightReadingSvc *sightreading.Service
	RadioSvc        *radio.Service
	LiturgySvc      *liturgy.Service
	LibrarySvc      *library.Service
	AssistantSvc    *assistant.Service
	Validate        *validator.Validate
	Translator      ut.Translator
}

type Server struct {
	conf     *core.Config
	app      *echo.Echo
	auth     *Auth
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(conf *core.Config, logger core.Logger, deps Deps) *Server {
	s := &Server{
		conf:     conf,
		app:      echo.New(),
		auth:     NewAuth(conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.app.HideBanner = true
	s.setup(logger, deps)
	return s
}

func (s *Server) setup(logger core.Logger, deps Deps) {
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, deps.Translator, s.signalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.Middleware()
	limit := rateLimitMiddleware(s.conf.Server)

	registerMemberAPI(v1, s.auth, limit, deps.MemberSvc, deps.Validate)
	registerAttendanceAPI(v1, jwt, deps.AttendanceSvc, deps.MemberSvc)
	registerExcuseAPI(v1, jwt, deps.ExcuseSvc, deps.MemberSvc)
	registerNotificationAPI(v1, jwt, deps.NotificationSvc, deps.MemberSvc)
	registerFinanceAPI(v1, jwt, deps.FinanceSvc, deps.MemberSvc)
	registerGradingAPI(v1, jwt, deps.GradingSvc, deps.MemberSvc)
	registerRadioAPI(v1, jwt, deps.RadioSvc, logger, s.conf.Server.AllowedOrigins)
	registerLiturgyAPI(v1, jwt, deps.LiturgySvc)
	registerLibraryAPI(v1, jwt, deps.LibrarySvc, deps.MemberSvc)
	registerAuditAPI(v1, jwt, deps.AuditSvc)
	registerFunctionsAPI(v1, jwt, limit, &functionsApi{
		members:       deps.MemberSvc,
		grading:       deps.GradingSvc,
		sightReading:  deps.SightReadingSvc,
		liturgy:       deps.LiturgySvc,
		library:       deps.LibrarySvc,
		notifications: deps.NotificationSvc,
		assistant:     deps.AssistantSvc,
		validate:      deps.Validate,
	})
}

// Start blocks while serving. Failures are reported on Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) Auth() *Auth {
	return s.auth
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
