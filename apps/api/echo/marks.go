package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const marksURL = "/marks/"

func registerMarksRoutes(g *echo.Group, h *handler) {
	mg := g.Group("/marks", requireRoles(user.TeacherOnly))
	mg.GET("/", h.listMarks)
	mg.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addMarks)
	mg.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editMarks)
	mg.POST("/delete/:id/", h.deleteMarks)
}

type marksChoices struct {
	Students []school.Student
	Exams    []school.Exam
}

func (h *handler) marksChoices(ctx context.Context) (marksChoices, error) {
	students, err := h.schoolSvc.ListStudents(ctx, nil)
	if err != nil {
		return marksChoices{}, errors.Wrap(err, "listing students")
	}
	exams, err := h.schoolSvc.ListExams(ctx, nil)
	if err != nil {
		return marksChoices{}, errors.Wrap(err, "listing exams")
	}
	return marksChoices{Students: students, Exams: exams}, nil
}

func (h *handler) listMarks(ctx echo.Context) error {
	usr, _ := contextUser(ctx)
	marks, err := h.schoolSvc.ListMarks(ctx.Request().Context(), usr, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing marks")
	}
	return h.renderOK(ctx, "marks_list", page{Title: "Marks", Data: marks})
}

func (h *handler) addMarks(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	form := school.NewMarksForm(school.Marks{})
	form.MarksObtained = ""
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindMarksForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.CreateMarks(reqCtx, usr, form)
			if err == nil {
				return redirectWithFlash(ctx, marksURL, flashSuccess, "Marks added successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "creating marks")
			}
		}
	}

	choices, err := h.marksChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "marks_form", page{Title: "Add Marks", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) editMarks(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	m, err := h.schoolSvc.GetMarks(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "finding marks")
	}

	form := school.NewMarksForm(m)
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindMarksForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.UpdateMarks(reqCtx, usr, m, form)
			if err == nil {
				return redirectWithFlash(ctx, marksURL, flashSuccess, "Marks updated successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "updating marks")
			}
		}
	}

	choices, err := h.marksChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "marks_form", page{Title: "Edit Marks", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) deleteMarks(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	m, err := h.schoolSvc.GetMarks(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "finding marks")
	}
	if err := h.schoolSvc.DeleteMarks(reqCtx, m.ID); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return redirectWithFlash(ctx, marksURL, flashSuccess, "Marks deleted successfully.")
}
