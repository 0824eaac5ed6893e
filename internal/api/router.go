package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/beesense/hive-dashboard/docs"
	"github.com/beesense/hive-dashboard/internal/api/handler"
	"github.com/beesense/hive-dashboard/internal/api/middleware"
	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

// DashboardDeps are the collaborators of the dashboard gateway.
type DashboardDeps struct {
	Sessions ports.SessionManager
	Backend  ports.HiveBackend
	Checks   map[string]handler.Check
	Log      zerolog.Logger
}

// NewDashboardRouter builds the gateway's Echo instance.
func NewDashboardRouter(d DashboardDeps) *echo.Echo {
	e := newEcho("dashboard", d.Log, d.Checks)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session ---
	sessions := handler.NewSessionHandler(d.Sessions, d.Log)
	s := e.Group("/api/session")
	s.POST("/login", sessions.Login)
	s.POST("/register", sessions.Register)
	s.POST("/demo", sessions.Demo)
	s.DELETE("", sessions.Logout)
	s.GET("", sessions.Current)
	s.GET("/events", sessions.Events)

	// --- Hive views (require a signed-in identity) ---
	hives := handler.NewHiveHandler(d.Backend, d.Sessions)
	g := e.Group("/api", middleware.Session(d.Sessions))
	g.GET("/hives", hives.List)
	g.GET("/hives/:id", hives.Get)
	g.GET("/hives/:id/readings", hives.Readings)
	g.GET("/alerts", hives.Alerts)
	g.POST("/alerts/:id/ack", hives.Acknowledge, middleware.RBAC(domain.RoleAdmin, domain.RoleObserver))

	return e
}

// BackendDeps are the collaborators of the development backend.
type BackendDeps struct {
	Accounts   ports.AccountService
	Hives      ports.HiveRepository
	Readings   ports.ReadingRepository
	Alerts     ports.AlertRepository
	Dispatcher handler.ReadingDispatcher
	Checks     map[string]handler.Check
	JWTSecret  string
	Log        zerolog.Logger
}

// NewBackendRouter builds the development backend's Echo instance.
func NewBackendRouter(d BackendDeps) *echo.Echo {
	e := newEcho("hivebackend", d.Log, d.Checks)
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(echoSwagger.InstanceName(docs.BackendSwaggerInfo.InstanceName())))

	// --- Auth ---
	accounts := handler.NewAccountHandler(d.Accounts)
	e.POST("/auth/register", accounts.Register)
	e.POST("/auth/login", accounts.Login)
	e.POST("/auth/demo-login", accounts.DemoLogin)

	auth := middleware.Auth(d.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Hives and alerts ---
	data := handler.NewHiveDataHandler(d.Hives, d.Readings, d.Alerts, d.Log)
	e.GET("/hives", data.List, auth)
	e.POST("/hives", data.Create, auth, adminOnly)
	e.GET("/hives/:id", data.Get, auth)
	e.GET("/hives/:id/readings", data.Readings, auth)
	e.GET("/alerts", data.Alerts, auth)
	e.POST("/alerts/:id/ack", data.Acknowledge, auth, middleware.RBAC(domain.RoleAdmin, domain.RoleObserver))

	// --- Reading ingestion ---
	readings := handler.NewReadingHandler(d.Dispatcher)
	e.POST("/readings", readings.Receive, auth, adminOnly)
	e.POST("/readings/batch", readings.ReceiveBatch, auth, adminOnly)

	return e
}

// newEcho wires the middleware and probes shared by both binaries.
func newEcho(subsystem string, log zerolog.Logger, checks map[string]handler.Check) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoprometheus.NewMiddleware(subsystem))

	// --- Health probes and metrics (no auth required) ---
	health := handler.NewHealthHandler()
	ready := handler.NewReadinessHandler(checks)
	e.GET("/health", health.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", ready.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
