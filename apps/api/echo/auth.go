package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/user"
)

const errFormValidation = "Form validation failed."

func registerAuthRoutes(app *echo.Echo, h *handler) {
	app.GET(loginURL, h.login)
	app.POST(loginURL, h.login)
	app.GET("/logout/", h.logout, h.authMiddleware)
	app.POST("/logout/", h.logout, h.authMiddleware)
}

// safeNext returns next when it is a local path, the dashboard otherwise.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return dashboardURL
}

func (h *handler) login(ctx echo.Context) error {
	next := ctx.FormValue("next")

	// already logged in
	if usr, err := h.sessionUser(ctx); err == nil && usr.Role.Valid() {
		return ctx.Redirect(http.StatusFound, safeNext(next))
	}

	var form user.LoginForm
	fldErrs := make(map[string]string)

	if ctx.Request().Method == http.MethodPost {
		if err := ctx.Bind(&form); err != nil {
			return errors.Wrap(err, "binding to LoginForm")
		}

		usr, err := h.usrSvc.Authenticate(ctx.Request().Context(), form)
		switch cause := errors.Cause(err); {
		case err == nil:
			if err := h.sessions.start(ctx, usr); err != nil {
				return errors.Wrap(err, "starting session")
			}
			return ctx.Redirect(http.StatusFound, safeNext(next))
		case cause == user.ErrInvalidCredentials:
			fldErrs[""] = cause.Error()
		default:
			if _, ok := cause.(validator.ValidationErrors); !ok {
				return errors.Wrap(err, "authenticating")
			}
			fldErrs, _ = h.fieldErrors(err)
			fldErrs[""] = errFormValidation
		}
		form.Password = ""
	}

	return h.renderOK(ctx, "login", page{
		Title:  "Log in",
		Form:   form,
		Errors: fldErrs,
		Data:   loginData{Next: next},
	})
}

type loginData struct {
	Next string
}

func (h *handler) logout(ctx echo.Context) error {
	h.sessions.clear(ctx)
	return ctx.Redirect(http.StatusFound, loginURL)
}
