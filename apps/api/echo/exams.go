package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const examsURL = "/exams/"

func registerExamRoutes(g *echo.Group, h *handler) {
	eg := g.Group("/exams", requireRoles(user.AdminOnly))
	eg.GET("/", h.listExams)
	eg.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addExam)
	eg.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editExam)
	eg.POST("/delete/:id/", h.deleteExam)
}

type examChoices struct {
	Courses []school.Course
}

func (h *handler) listExams(ctx echo.Context) error {
	exams, err := h.schoolSvc.ListExams(ctx.Request().Context(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing exams")
	}
	return h.renderOK(ctx, "exam_list", page{Title: "Exams", Data: exams})
}

func (h *handler) addExam(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	form := school.NewExamForm(school.Exam{})
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindExamForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.CreateExam(reqCtx, form)
			if err == nil {
				return redirectWithFlash(ctx, examsURL, flashSuccess, "Exam added successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "creating exam")
			}
		}
	}

	courses, err := h.schoolSvc.ListCourses(reqCtx, nil)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return h.renderOK(ctx, "exam_form", page{Title: "Add Exam", Form: form, Errors: fldErrs, Data: examChoices{Courses: courses}})
}

func (h *handler) editExam(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	e, err := h.schoolSvc.GetExam(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding exam")
	}

	form := school.NewExamForm(e)
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindExamForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.UpdateExam(reqCtx, e, form)
			if err == nil {
				return redirectWithFlash(ctx, examsURL, flashSuccess, "Exam updated successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "updating exam")
			}
		}
	}

	courses, err := h.schoolSvc.ListCourses(reqCtx, nil)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return h.renderOK(ctx, "exam_form", page{Title: "Edit Exam", Form: form, Errors: fldErrs, Data: examChoices{Courses: courses}})
}

func (h *handler) deleteExam(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := h.schoolSvc.DeleteExam(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return redirectWithFlash(ctx, examsURL, flashSuccess, "Exam deleted successfully.")
}
