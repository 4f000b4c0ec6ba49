// Package httpserver exposes the todo service over HTTP: HTML login pages and a JSON todo API.
package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hugo-r/server-challenge/internal/service"
	"github.com/hugo-r/server-challenge/internal/session"
)

// Server wires services into echo handlers.
type Server struct {
	e      *echo.Echo
	auth   service.AuthService
	todos  service.TodoService
	cookie session.CookieOptions
	log    *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(auth service.AuthService, todos service.TodoService, cookie session.CookieOptions, log *zap.Logger) *Server {
	s := &Server{
		e:      echo.New(),
		auth:   auth,
		todos:  todos,
		cookie: cookie,
		log:    log,
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.IPExtractor = echo.ExtractIPDirect()
	s.e.Renderer = renderer{t: views}
	s.e.HTTPErrorHandler = s.errorHandler

	s.e.Use(s.requestLogger())
	s.e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic",
				zap.Error(err),
				zap.ByteString("stack", stack),
				zap.String("path", c.Request().URL.Path),
			)
			return err
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET("/login", s.getLogin)
	s.e.POST("/login", s.postLogin)
	s.e.GET("/logout", s.logout)

	authed := s.e.Group("", s.requireSession)
	authed.GET("/", s.home)
	authed.GET("/todos", s.listTodos)
	authed.PUT("/todos", s.createTodo)
	authed.PATCH("/todo/:id", s.updateTodo)
	authed.DELETE("/todo/:id", s.deleteTodo)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// requestLogger logs metadata only, never payloads.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info("http",
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("dur", v.Latency),
				zap.String("remote", v.RemoteIP),
			)
			return nil
		},
	})
}
