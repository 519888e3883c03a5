package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/grid"
	"github.com/SkySouL159/RMS/internal/view"
)

// PageHandler renders the server-side grid pages.
type PageHandler struct {
	grids map[string]*grid.Controller
}

// NewPageHandler indexes the controllers by grid key.
func NewPageHandler(controllers ...*grid.Controller) *PageHandler {
	m := make(map[string]*grid.Controller, len(controllers))
	for _, ctrl := range controllers {
		m[ctrl.Schema().Name] = ctrl
	}
	return &PageHandler{grids: m}
}

// Home redirects to the default tab, like the original tool.
func (h *PageHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/lightbill")
}

// LightBill handles GET /lightbill.
func (h *PageHandler) LightBill(c echo.Context) error {
	return h.renderGrid(c, "lightbill", "Light Bills")
}

// Payment handles GET /payment.
func (h *PageHandler) Payment(c echo.Context) error {
	return h.renderGrid(c, "payment", "Payments")
}

// renderGrid serves one grid page from the controller's current state.
// A grid that has not loaded yet is loaded within the request, so each
// fresh page visit behaves like a fresh mount: a load failure renders
// the terminal error message, never partial data.
func (h *PageHandler) renderGrid(c echo.Context, name, title string) error {
	ctrl, ok := h.grids[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}

	snap := ctrl.Snapshot()
	if snap.Loading || snap.Err != "" {
		_ = ctrl.Load(c.Request().Context())
		snap = ctrl.Snapshot()
	}

	data := view.PageData{
		Title:  title,
		Active: name,
		Schema: ctrl.Schema(),
		Rows:   snap.Rows,
		Err:    snap.Err,
	}
	if ctrl.Schema().HasTotals {
		bill, points := ctrl.Totals()
		data.TotalBill = bill.StringFixed(0)
		data.TotalPoints = points.StringFixed(0)
	}
	return c.Render(http.StatusOK, "grid", data)
}
