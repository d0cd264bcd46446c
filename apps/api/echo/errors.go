package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

var errNotFound = echo.NewHTTPError(http.StatusNotFound, "Page not found.")

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, h *handler, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var code int
		var message string

		switch cause := errors.Cause(err); cause {
		case school.ErrAccessDenied:
			err = redirectWithFlash(ctx, dashboardURL, flashError, cause.Error())
			logIfFailed(ctx, err)
			return

		case school.ErrRoleNotRecognized:
			h.sessions.clear(ctx)
			err = redirectWithFlash(ctx, loginURL, flashError, cause.Error())
			logIfFailed(ctx, err)
			return

		case school.ErrNotFound, user.ErrNotFound:
			code = http.StatusNotFound
			message = errNotFound.Message.(string)

		default:
			if herr, ok := cause.(*echo.HTTPError); ok {
				if herr.Internal != nil {
					if internal, ok := herr.Internal.(*echo.HTTPError); ok {
						herr = internal
					}
				}
				code = herr.Code
				message = http.StatusText(code)
				if msg, ok := herr.Message.(string); ok {
					message = msg
				}
				if code == http.StatusNotFound {
					message = errNotFound.Message.(string)
				}
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)

			usr, _ := contextUser(ctx)
			logger.Error(message, errors.Wrap(err, message), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = h.render(ctx, code, "error", page{Title: http.StatusText(code), Data: errorData{Code: code, Message: message}})
		}
		logIfFailed(ctx, err)
	}
}

type errorData struct {
	Code    int
	Message string
}

func logIfFailed(ctx echo.Context, err error) {
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
