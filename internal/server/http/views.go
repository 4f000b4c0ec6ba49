package httpserver

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const (
	viewLogin = "login"
	viewHome  = "home"
)

var views = template.Must(template.New("").Parse(`
{{define "login"}}<html><head><title>Login page</title></head><body>
{{if .Message}}<h3>{{.Message}}</h3><br/>{{end}}
<form method="post" action="/login">
Username: <input type="text" name="username" required><br>
Password: <input type="password" name="password" required><br/>
<input type="submit" value="Login"></form>
</body></html>
{{end}}
{{define "home"}}<html><head><title>Login page</title></head><body>
<h3>Welcome {{.Name}}! You are logged in!</h3>
<form method="get" action="/logout">
<input type="submit" value="Logout">
</form>
</body></html>
{{end}}
`))

type loginView struct{ Message string }

type homeView struct{ Name string }

// renderer adapts the page templates to echo.
type renderer struct{ t *template.Template }

func (r renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}
