package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/edudesk/core"
)

func (h *handler) fieldErrors(err error) (map[string]string, bool) {
	return core.FieldErrors(err, h.translator)
}

func isPost(ctx echo.Context) bool {
	return ctx.Request().Method == http.MethodPost
}

// formError returns the field errors of a failed submission, or err itself
// when it is not a validation error.
func (h *handler) formError(err error) (map[string]string, error) {
	if fldErrs, ok := h.fieldErrors(err); ok {
		return fldErrs, nil
	}
	return nil, err
}
