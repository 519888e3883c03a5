// Package handler contains the HTTP handlers: the grid JSON API, the
// server-rendered grid pages, the SSE change stream and the health
// check.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/SkySouL159/RMS/internal/grid"
	"github.com/SkySouL159/RMS/internal/store"
)

// GridHandler exposes the presentation boundary of the grid controllers
// as a JSON API.
type GridHandler struct {
	grids  map[string]*grid.Controller
	finder *store.Client
}

// NewGridHandler indexes the controllers by their grid key.
func NewGridHandler(finder *store.Client, controllers ...*grid.Controller) *GridHandler {
	m := make(map[string]*grid.Controller, len(controllers))
	for _, ctrl := range controllers {
		m[ctrl.Schema().Name] = ctrl
	}
	return &GridHandler{grids: m, finder: finder}
}

// controller resolves the :grid path parameter.
func (h *GridHandler) controller(c echo.Context) (*grid.Controller, error) {
	ctrl, ok := h.grids[c.Param("grid")]
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}
	return ctrl, nil
}

// totalsPayload formats the light grid's aggregate footer the way the
// page displays it (whole rupees, whole points).
func totalsPayload(ctrl *grid.Controller) map[string]string {
	if !ctrl.Schema().HasTotals {
		return nil
	}
	bill, points := ctrl.Totals()
	return map[string]string{
		"bill":   bill.StringFixed(0),
		"points": points.StringFixed(0),
	}
}

// Rows handles GET /v1/grids/:grid/rows. It returns the current
// in-memory row set together with loading/error state, totals and the
// active edit target. A grid that has never loaded successfully is
// loaded on demand so a fresh client behaves like a fresh mount of the
// original component.
func (h *GridHandler) Rows(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return err
	}
	snap := ctrl.Snapshot()
	if snap.Loading || snap.Err != "" {
		if err := ctrl.Load(c.Request().Context()); err != nil {
			return c.JSON(http.StatusBadGateway, map[string]any{"error": err.Error()})
		}
		snap = ctrl.Snapshot()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"rows":    snap.Rows,
		"totals":  totalsPayload(ctrl),
		"loading": snap.Loading,
		"error":   snap.Err,
		"editing": snap.Editing,
	})
}

// GetRow handles GET /v1/grids/:grid/rows/:id. The lookup goes to the
// remote store with an id filter, so it reports the row's current
// remote existence rather than the local copy.
func (h *GridHandler) GetRow(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid row id"})
	}
	row, found, err := h.finder.SelectByID(c.Request().Context(), ctrl.Schema().Table, id)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "row not found"})
	}
	ctrl.Schema().Derive(row)
	return c.JSON(http.StatusOK, map[string]any{"row": row})
}

// BeginEdit handles POST /v1/grids/:grid/edits. It opens the single
// edit session on a cell; non-editable columns and grids with a commit
// in flight are rejected without touching the edit target.
func (h *GridHandler) BeginEdit(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return err
	}
	var body struct {
		RowID  int64  `json:"row_id"`
		Column string `json:"column"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := ctrl.BeginEdit(body.RowID, body.Column); err != nil {
		return h.editError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"editing": ctrl.EditTarget()})
}

// CancelEdit handles DELETE /v1/grids/:grid/edits. Discarding an edit
// session is always allowed and always succeeds.
func (h *GridHandler) CancelEdit(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return err
	}
	ctrl.CancelEdit()
	return c.NoContent(http.StatusNoContent)
}

// Commit handles PUT /v1/grids/:grid/rows/:id/cells/:column. The body
// carries the raw text the user left in the cell; the controller
// decides whether it is a no-op, commits it to the remote store and
// returns the reconciled row.
func (h *GridHandler) Commit(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid row id"})
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	row, err := ctrl.CommitEdit(c.Request().Context(), id, c.Param("column"), body.Value)
	if err != nil {
		return h.editError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"row":    row,
		"totals": totalsPayload(ctrl),
	})
}

// editError maps grid sentinels onto HTTP statuses. Failures talking to
// the remote store surface as 502: the edit was valid, the upstream
// rejected it.
func (h *GridHandler) editError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, grid.ErrRowNotFound), errors.Is(err, store.ErrRowGone):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, grid.ErrColumnNotEditable):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, grid.ErrEditBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, grid.ErrNotLoaded):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
