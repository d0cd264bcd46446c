package echoapi

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const (
	contextUserKey = "user"

	loginURL     = "/login/"
	dashboardURL = "/dashboard/"
)

func contextUser(ctx echo.Context) (user.User, bool) {
	usr, ok := ctx.Get(contextUserKey).(user.User)
	return usr, ok
}

// sessionUser loads the active user bound to the request session.
func (h *handler) sessionUser(ctx echo.Context) (user.User, error) {
	id, err := h.sessions.userID(ctx)
	if err != nil {
		return user.User{}, errNoSession
	}
	usr, err := h.usrSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errNoSession
		}
		return user.User{}, errors.Wrap(err, "finding session user")
	}
	if !usr.IsActive {
		return user.User{}, errNoSession
	}
	return usr, nil
}

// authMiddleware requires a session, redirecting anonymous requests to the login page.
func (h *handler) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := h.sessionUser(ctx)
		if err != nil {
			if err != errNoSession {
				return err
			}
			h.sessions.clear(ctx)
			q := url.Values{"next": {ctx.Request().URL.RequestURI()}}
			return ctx.Redirect(http.StatusFound, loginURL+"?"+q.Encode())
		}
		if !usr.Role.Valid() {
			return school.ErrRoleNotRecognized
		}
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

// requireRoles lets through the users holding one of the allowed roles.
func requireRoles(allowed user.RoleSet) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, ok := contextUser(ctx)
			if !ok || !user.Authorize(usr.Role, allowed) {
				return school.ErrAccessDenied
			}
			return next(ctx)
		}
	}
}
