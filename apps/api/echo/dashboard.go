package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (h *handler) dashboard(ctx echo.Context) error {
	usr, _ := contextUser(ctx)
	dash, err := h.schoolSvc.Dashboard(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return h.renderOK(ctx, "dashboard", page{Title: "Dashboard", Data: dash})
}
