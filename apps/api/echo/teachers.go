package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const teachersURL = "/teachers/"

func registerTeacherRoutes(g *echo.Group, h *handler) {
	tg := g.Group("/teachers", requireRoles(user.AdminOnly))
	tg.GET("/", h.listTeachers)
	tg.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addTeacher)
	tg.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editTeacher)
	tg.POST("/delete/:id/", h.deleteTeacher)
}

func (h *handler) listTeachers(ctx echo.Context) error {
	teachers, err := h.schoolSvc.ListTeachers(ctx.Request().Context(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	return h.renderOK(ctx, "teacher_list", page{Title: "Teachers", Data: teachers})
}

func (h *handler) addTeacher(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	form := school.NewTeacherForm(school.Teacher{})
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindTeacherForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.CreateTeacher(reqCtx, form)
			if err == nil {
				return redirectWithFlash(ctx, teachersURL, flashSuccess, "Teacher added successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "creating teacher")
			}
		}
	}

	choices, err := h.profileChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "teacher_form", page{Title: "Add Teacher", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) editTeacher(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	t, err := h.schoolSvc.GetTeacher(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}

	form := school.NewTeacherForm(t)
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindTeacherForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.UpdateTeacher(reqCtx, t, form)
			if err == nil {
				return redirectWithFlash(ctx, teachersURL, flashSuccess, "Teacher updated successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "updating teacher")
			}
		}
	}

	choices, err := h.profileChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "teacher_form", page{Title: "Edit Teacher", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) deleteTeacher(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := h.schoolSvc.DeleteTeacher(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return redirectWithFlash(ctx, teachersURL, flashSuccess, "Teacher deleted successfully.")
}
