package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hugo-r/server-challenge/internal/errs"
)

const (
	msgNotFound        = "404 Error! Page Not Found!"
	msgAlreadyComplete = `State is already "Complete"`
)

// errorHandler maps handler errors onto responses. Anything it does not
// recognize is an internal fault: logged, answered with 500 {}.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		err = c.String(http.StatusNotFound, msgNotFound)
	case errors.Is(err, errs.ErrAlreadyComplete):
		err = c.String(http.StatusBadRequest, msgAlreadyComplete)
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, errs.ErrInvalidDescription):
		err = c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &he):
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			err = c.String(http.StatusNotFound, msgNotFound)
		case http.StatusInternalServerError:
			s.log.Error("internal", zap.Error(he), zap.String("path", c.Request().URL.Path))
			err = c.JSON(http.StatusInternalServerError, echo.Map{})
		default:
			err = c.JSON(he.Code, echo.Map{"error": http.StatusText(he.Code)})
		}
	default:
		s.log.Error("internal", zap.Error(err), zap.String("path", c.Request().URL.Path))
		err = c.JSON(http.StatusInternalServerError, echo.Map{})
	}
	if err != nil {
		s.log.Warn("write error response", zap.Error(err))
	}
}
