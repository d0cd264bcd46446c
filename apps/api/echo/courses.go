package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const coursesURL = "/courses/"

func registerCourseRoutes(g *echo.Group, h *handler) {
	cg := g.Group("/courses", requireRoles(user.AdminOnly))
	cg.GET("/", h.listCourses)
	cg.Match([]string{http.MethodGet, http.MethodPost}, "/add/", h.addCourse)
	cg.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", h.editCourse)
	cg.POST("/delete/:id/", h.deleteCourse)
}

func (h *handler) listCourses(ctx echo.Context) error {
	courses, err := h.schoolSvc.ListCourses(ctx.Request().Context(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return h.renderOK(ctx, "course_list", page{Title: "Courses", Data: courses})
}

func (h *handler) addCourse(ctx echo.Context) error {
	form := school.NewCourseForm(school.Course{})
	var fldErrs map[string]string

	if isPost(ctx) {
		form = school.CourseForm{}
		if err := ctx.Bind(&form); err != nil {
			return errors.Wrap(err, "binding to CourseForm")
		}
		_, err := h.schoolSvc.CreateCourse(ctx.Request().Context(), form)
		if err == nil {
			return redirectWithFlash(ctx, coursesURL, flashSuccess, "Course added successfully.")
		}
		if fldErrs, err = h.formError(err); err != nil {
			return errors.Wrap(err, "creating course")
		}
	}
	return h.renderOK(ctx, "course_form", page{Title: "Add Course", Form: form, Errors: fldErrs})
}

func (h *handler) editCourse(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	c, err := h.schoolSvc.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	form := school.NewCourseForm(c)
	var fldErrs map[string]string

	if isPost(ctx) {
		form = school.CourseForm{}
		if err := ctx.Bind(&form); err != nil {
			return errors.Wrap(err, "binding to CourseForm")
		}
		_, err := h.schoolSvc.UpdateCourse(ctx.Request().Context(), c, form)
		if err == nil {
			return redirectWithFlash(ctx, coursesURL, flashSuccess, "Course updated successfully.")
		}
		if fldErrs, err = h.formError(err); err != nil {
			return errors.Wrap(err, "updating course")
		}
	}
	return h.renderOK(ctx, "course_form", page{Title: "Edit Course", Form: form, Errors: fldErrs})
}

func (h *handler) deleteCourse(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := h.schoolSvc.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return redirectWithFlash(ctx, coursesURL, flashSuccess, "Course deleted successfully.")
}
