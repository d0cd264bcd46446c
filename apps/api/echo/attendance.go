package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const attendanceURL = "/attendance/"

func registerAttendanceRoutes(g *echo.Group, h *handler) {
	ag := g.Group("/attendance", requireRoles(user.TeacherOnly))
	ag.GET("/", h.listAttendance)
	ag.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addAttendance)
	ag.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editAttendance)
	ag.POST("/delete/:id/", h.deleteAttendance)
}

type attendanceChoices struct {
	Students []school.Student
	Courses  []school.Course
}

func (h *handler) attendanceChoices(ctx context.Context) (attendanceChoices, error) {
	students, err := h.schoolSvc.ListStudents(ctx, nil)
	if err != nil {
		return attendanceChoices{}, errors.Wrap(err, "listing students")
	}
	courses, err := h.schoolSvc.ListCourses(ctx, nil)
	if err != nil {
		return attendanceChoices{}, errors.Wrap(err, "listing courses")
	}
	return attendanceChoices{Students: students, Courses: courses}, nil
}

func (h *handler) listAttendance(ctx echo.Context) error {
	usr, _ := contextUser(ctx)
	records, err := h.schoolSvc.ListAttendance(ctx.Request().Context(), usr, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	return h.renderOK(ctx, "attendance_list", page{Title: "Attendance", Data: records})
}

func (h *handler) addAttendance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	form := school.NewAttendanceForm(school.Attendance{})
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindAttendanceForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.CreateAttendance(reqCtx, usr, form)
			if err == nil {
				return redirectWithFlash(ctx, attendanceURL, flashSuccess, "Attendance added successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "creating attendance")
			}
		}
	}

	choices, err := h.attendanceChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "attendance_form", page{Title: "Add Attendance", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) editAttendance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	a, err := h.schoolSvc.GetAttendance(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "finding attendance")
	}

	form := school.NewAttendanceForm(a)
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindAttendanceForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.UpdateAttendance(reqCtx, usr, a, form)
			if err == nil {
				return redirectWithFlash(ctx, attendanceURL, flashSuccess, "Attendance updated successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "updating attendance")
			}
		}
	}

	choices, err := h.attendanceChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "attendance_form", page{Title: "Edit Attendance", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) deleteAttendance(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, _ := contextUser(ctx)
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	a, err := h.schoolSvc.GetAttendance(reqCtx, usr, id)
	if err != nil {
		return errors.Wrap(err, "finding attendance")
	}
	if err := h.schoolSvc.DeleteAttendance(reqCtx, a.ID); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return redirectWithFlash(ctx, attendanceURL, flashSuccess, "Attendance deleted successfully.")
}
