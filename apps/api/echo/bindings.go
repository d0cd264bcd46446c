package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-field`. A leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func bindOrdering(ctx echo.Context) []core.DBOrdering {
	ord := new(Ordering)
	ord.Bind(ctx)
	return ord.Orderings
}

// paramID returns the :id path parameter. A malformed id is reported as not found.
func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}

// Form binders read select fields as ids. A value that is not an id is reported
// on its field as an invalid choice, the same way the service reports unknown ids.

func newFormBinder(ctx echo.Context) *echo.ValueBinder {
	return echo.FormFieldBinder(ctx).FailFast(false)
}

// choiceErrors returns nil when every field was bound.
func choiceErrors(errs []error) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	fldErrs := make(map[string]string, len(errs))
	for _, err := range errs {
		var berr *echo.BindingError
		if errors.As(err, &berr) {
			fldErrs[berr.Field] = school.InvalidChoiceText
		}
	}
	return fldErrs
}

func bindStudentForm(ctx echo.Context) (form school.StudentForm, fldErrs map[string]string) {
	errs := newFormBinder(ctx).
		Int("user", &form.UserID).
		String("roll_number", &form.RollNumber).
		Ints("courses", &form.Courses).
		BindErrors()
	return form, choiceErrors(errs)
}

func bindTeacherForm(ctx echo.Context) (form school.TeacherForm, fldErrs map[string]string) {
	errs := newFormBinder(ctx).
		Int("user", &form.UserID).
		Ints("courses", &form.Courses).
		BindErrors()
	return form, choiceErrors(errs)
}

func bindExamForm(ctx echo.Context) (form school.ExamForm, fldErrs map[string]string) {
	errs := newFormBinder(ctx).
		String("name", &form.Name).
		Int("course", &form.CourseID).
		String("date", &form.Date).
		BindErrors()
	return form, choiceErrors(errs)
}

func bindMarksForm(ctx echo.Context) (form school.MarksForm, fldErrs map[string]string) {
	errs := newFormBinder(ctx).
		Int("student", &form.StudentID).
		Int("exam", &form.ExamID).
		String("marks_obtained", &form.MarksObtained).
		BindErrors()
	return form, choiceErrors(errs)
}

// bindAttendanceForm leaves Status empty for an unchecked box, which is not submitted.
func bindAttendanceForm(ctx echo.Context) (form school.AttendanceForm, fldErrs map[string]string) {
	errs := newFormBinder(ctx).
		Int("student", &form.StudentID).
		Int("course", &form.CourseID).
		String("date", &form.Date).
		String("status", &form.Status).
		BindErrors()
	return form, choiceErrors(errs)
}
