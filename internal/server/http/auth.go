package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/session"
)

const (
	msgMissingFields = "Missing username or password"
	msgInvalidCreds  = "Invalid username or password"
	msgRateLimited   = "Too many failed login attempts, try again later"
)

// LoginForm is the body of POST /login.
type LoginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// sessionUser resolves the request's cookie. No cookie is errs.ErrUnauthorized.
func (s *Server) sessionUser(c echo.Context) (model.User, error) {
	tok := session.FromRequest(c.Request(), s.cookie)
	if tok == "" {
		return model.User{}, errs.ErrUnauthorized
	}
	return s.auth.ValidateSession(c.Request().Context(), tok)
}

// wantsJSON reports whether the client accepts JSON but neither HTML nor anything.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) &&
		!strings.Contains(accept, echo.MIMETextHTML) &&
		!strings.Contains(accept, "*/*")
}

// requireSession gates a route: browsers go to /login, API clients get 401.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := s.sessionUser(c)
		switch {
		case err == nil:
			ctx := WithUser(c.Request().Context(), u)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		case errors.Is(err, errs.ErrInvalidSession):
			s.log.Debug("rejected session", zap.Error(err))
			session.ClearCookie(c.Response(), s.cookie)
		case !errors.Is(err, errs.ErrUnauthorized):
			return err
		}

		if wantsJSON(c.Request()) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.Redirect(http.StatusFound, "/login")
	}
}

func (s *Server) home(c echo.Context) error {
	u, ok := UserFromCtx(c.Request().Context())
	if !ok {
		return errors.New("no user in context")
	}
	return c.Render(http.StatusOK, viewHome, homeView{Name: u.Name})
}

func (s *Server) getLogin(c echo.Context) error {
	_, err := s.sessionUser(c)
	switch {
	case err == nil:
		return c.Redirect(http.StatusFound, "/")
	case errors.Is(err, errs.ErrInvalidSession):
		session.ClearCookie(c.Response(), s.cookie)
	case !errors.Is(err, errs.ErrUnauthorized):
		return err
	}
	return c.Render(http.StatusOK, viewLogin, loginView{})
}

func (s *Server) postLogin(c echo.Context) error {
	var f LoginForm
	if err := c.Bind(&f); err != nil {
		return c.Render(http.StatusBadRequest, viewLogin, loginView{Message: msgMissingFields})
	}

	tok, u, err := s.auth.LoginWithIP(c.Request().Context(), f.Username, f.Password, c.RealIP())
	switch {
	case errors.Is(err, errs.ErrMissingFields):
		return c.Render(http.StatusOK, viewLogin, loginView{Message: msgMissingFields})
	case errors.Is(err, errs.ErrInvalidCredentials):
		return c.Render(http.StatusOK, viewLogin, loginView{Message: msgInvalidCreds})
	case errors.Is(err, errs.ErrRateLimited):
		return c.Render(http.StatusTooManyRequests, viewLogin, loginView{Message: msgRateLimited})
	case err != nil:
		return err
	}

	s.log.Info("login", zap.Int64("user_id", u.ID))
	session.SetCookie(c.Response(), tok.Value, tok.ExpiresAt, s.cookie)
	return c.Redirect(http.StatusFound, "/")
}

// logout needs no session and always succeeds.
func (s *Server) logout(c echo.Context) error {
	session.ClearCookie(c.Response(), s.cookie)
	return c.Redirect(http.StatusFound, "/")
}
