package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hugo-r/server-challenge/internal/convert"
	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

func currentUserID(c echo.Context) (int64, error) {
	u, ok := UserFromCtx(c.Request().Context())
	if !ok {
		return 0, errors.New("no user in context")
	}
	return u.ID, nil
}

func todoIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: id must be an integer >= 1", errs.ErrInvalidArgument)
	}
	return id, nil
}

// listTodos serves GET /todos?filter=&orderBy=.
func (s *Server) listTodos(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	q := model.ListQuery{
		Filter:  model.Filter(c.QueryParam("filter")),
		OrderBy: model.OrderBy(c.QueryParam("orderBy")),
	}
	todos, err := s.todos.List(c.Request().Context(), userID, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTodoList(todos))
}

// createTodo serves PUT /todos.
func (s *Server) createTodo(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req convert.CreateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	t, err := s.todos.Create(c.Request().Context(), userID, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTodoJSON(t))
}

// updateTodo serves PATCH /todo/:id.
func (s *Server) updateTodo(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	todoID, err := todoIDParam(c)
	if err != nil {
		return err
	}
	var req convert.PatchRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	patch, err := convert.FromPatchRequest(req)
	if err != nil {
		return err
	}
	t, err := s.todos.Update(c.Request().Context(), userID, todoID, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTodoJSON(t))
}

// deleteTodo serves DELETE /todo/:id.
func (s *Server) deleteTodo(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	todoID, err := todoIDParam(c)
	if err != nil {
		return err
	}
	if err := s.todos.Delete(c.Request().Context(), userID, todoID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}
