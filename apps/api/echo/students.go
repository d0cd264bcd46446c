package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const studentsURL = "/students/"

func registerStudentRoutes(g *echo.Group, h *handler) {
	sg := g.Group("/students", requireRoles(user.AdminOnly))
	sg.GET("/", h.listStudents)
	sg.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addStudent)
	sg.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editStudent)
	sg.POST("/delete/:id/", h.deleteStudent)
}

// profileChoices holds the select options of the student and teacher forms.
type profileChoices struct {
	Users   []user.User
	Courses []school.Course
}

func (h *handler) profileChoices(ctx context.Context) (profileChoices, error) {
	users, err := h.usrSvc.QueryAll(ctx, user.AnyRole)
	if err != nil {
		return profileChoices{}, errors.Wrap(err, "querying users")
	}
	courses, err := h.schoolSvc.ListCourses(ctx, nil)
	if err != nil {
		return profileChoices{}, errors.Wrap(err, "listing courses")
	}
	return profileChoices{Users: users, Courses: courses}, nil
}

func (h *handler) listStudents(ctx echo.Context) error {
	students, err := h.schoolSvc.ListStudents(ctx.Request().Context(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return h.renderOK(ctx, "student_list", page{Title: "Students", Data: students})
}

func (h *handler) addStudent(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	form := school.NewStudentForm(school.Student{})
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindStudentForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.CreateStudent(reqCtx, form)
			if err == nil {
				return redirectWithFlash(ctx, studentsURL, flashSuccess, "Student added successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "creating student")
			}
		}
	}

	choices, err := h.profileChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "student_form", page{Title: "Add Student", Form: form, Errors: fldErrs, Data: choices})
}

func (h *handler) editStudent(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	s, err := h.schoolSvc.GetStudent(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}

	form := school.NewStudentForm(s)
	var fldErrs map[string]string

	if isPost(ctx) {
		if form, fldErrs = bindStudentForm(ctx); fldErrs == nil {
			_, err := h.schoolSvc.UpdateStudent(reqCtx, s, form)
			if err == nil {
				return redirectWithFlash(ctx, studentsURL, flashSuccess, "Student updated successfully.")
			}
			if fldErrs, err = h.formError(err); err != nil {
				return errors.Wrap(err, "updating student")
			}
		}
	}

	choices, err := h.profileChoices(reqCtx)
	if err != nil {
		return err
	}
	return h.renderOK(ctx, "student_form", page{Title: "Edit Student", Form: form, Errors: fldErrs, Data: choices})
}

// deleteStudent also removes the enrollments, marks and attendance records of the student.
func (h *handler) deleteStudent(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := h.schoolSvc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return redirectWithFlash(ctx, studentsURL, flashSuccess, "Student deleted successfully.")
}
