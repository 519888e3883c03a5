// Package view renders the grid pages. Templates are compiled into the
// binary; the markup mirrors the original room-management tool: a tab
// bar, one table per grid with double-click inline editing, and the
// light grid's totals footer.
package view

import (
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/grid"
	"github.com/SkySouL159/RMS/internal/store"
)

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	t *template.Template
}

// New parses the embedded templates. Parse errors are programmer errors
// and panic at startup via template.Must.
func New() *Renderer {
	funcs := template.FuncMap{
		"cell": func(r store.Row, column string) string { return r.String(column) },
		"rowID": func(r store.Row) int64 {
			id, _ := r.ID()
			return id
		},
	}
	t := template.Must(template.New("rms").Funcs(funcs).Parse(pageHTML))
	return &Renderer{t: t}
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

// PageData is the template payload for one grid page.
type PageData struct {
	Title       string
	Active      string // active tab key
	Schema      grid.Schema
	Rows        []store.Row
	Err         string
	TotalBill   string
	TotalPoints string
}
