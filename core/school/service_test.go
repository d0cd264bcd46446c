package school_test

import (
	"context"
	"io"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
	appfs "github.com/trezcool/edudesk/fs"
	"github.com/trezcool/edudesk/internal/testutil"
	emailsvc "github.com/trezcool/edudesk/services/email"
	logsvc "github.com/trezcool/edudesk/services/logger"
	"github.com/trezcool/edudesk/storage/database/sqlxrepos"
)

type env struct {
	svc        *school.Service
	mail       *emailsvc.ConsoleServiceMock
	usrRepo    user.Repository
	translator ut.Translator

	admin   user.User
	teacher user.User
	parent  user.User

	algebra school.Course
	physics school.Course
	student school.Student
	exam    school.Exam
}

func newEnv(t *testing.T, configure func(conf *core.Config)) env {
	t.Helper()
	ctx := context.Background()

	conf := testutil.NewConfig()
	if configure != nil {
		configure(conf)
	}
	db := testutil.OpenDB(t)
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	validate, translator := testutil.NewValidator()
	e := env{
		mail:       emailsvc.NewConsoleServiceMock(conf, tmpls, logger),
		usrRepo:    sqlxrepos.NewUserRepository(db),
		translator: translator,
	}
	e.svc = school.NewService(db, sqlxrepos.NewSchoolRepository(db), e.usrRepo, validate, e.mail, logger, conf)

	e.admin = testutil.CreateUser(t, e.usrRepo, "admin", user.RoleAdmin)
	e.teacher = testutil.CreateUser(t, e.usrRepo, "teacher", user.RoleTeacher)
	e.parent = testutil.CreateUser(t, e.usrRepo, "parent", user.RoleParent)

	e.algebra, err = e.svc.CreateCourse(ctx, school.CourseForm{Name: "Algebra", Code: "MA101"})
	require.NoError(t, err)
	e.physics, err = e.svc.CreateCourse(ctx, school.CourseForm{Name: "Physics", Code: "PH101"})
	require.NoError(t, err)

	e.student, err = e.svc.CreateStudent(ctx, school.StudentForm{UserID: e.parent.ID, RollNumber: "R-001", Courses: []int{e.algebra.ID, e.physics.ID}})
	require.NoError(t, err)
	_, err = e.svc.CreateTeacher(ctx, school.TeacherForm{UserID: e.teacher.ID, Courses: []int{e.algebra.ID}})
	require.NoError(t, err)

	e.exam, err = e.svc.CreateExam(ctx, school.ExamForm{Name: "Midterm", CourseID: e.algebra.ID, Date: "2024-03-01"})
	require.NoError(t, err)
	return e
}

func (e env) fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	errs, ok := core.FieldErrors(err, e.translator)
	require.True(t, ok, "not a validation error: %v", err)
	return errs
}

func TestService_Courses(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	t.Run("blank fields", func(t *testing.T) {
		_, err := e.svc.CreateCourse(ctx, school.CourseForm{Name: "   ", Code: ""})
		assert.Equal(t, map[string]string{
			"name": "this field is required",
			"code": "this field is required",
		}, e.fieldErrors(t, err))
	})

	t.Run("duplicate code", func(t *testing.T) {
		_, err := e.svc.CreateCourse(ctx, school.CourseForm{Name: "Algebra II", Code: " MA101 "})
		assert.Equal(t, map[string]string{"code": school.ErrCourseCodeExists.Error()}, e.fieldErrors(t, err))
	})

	t.Run("update", func(t *testing.T) {
		c, err := e.svc.UpdateCourse(ctx, e.physics, school.CourseForm{Name: "Physics I", Code: "PH101", Description: " Mechanics "})
		require.NoError(t, err)
		assert.Equal(t, "Physics I", c.Name)
		assert.Equal(t, "Mechanics", c.Description)
	})
}

func TestService_Students(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	t.Run("unknown user", func(t *testing.T) {
		_, err := e.svc.CreateStudent(ctx, school.StudentForm{UserID: 9999, RollNumber: "R-002"})
		assert.Contains(t, e.fieldErrors(t, err), "user")
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := e.svc.CreateStudent(ctx, school.StudentForm{UserID: e.admin.ID, RollNumber: "R-002", Courses: []int{e.algebra.ID, 9999}})
		assert.Equal(t, map[string]string{"courses": "Select a valid choice. 9999 is not one of the available choices."}, e.fieldErrors(t, err))
	})

	t.Run("duplicate roll number", func(t *testing.T) {
		_, err := e.svc.CreateStudent(ctx, school.StudentForm{UserID: e.admin.ID, RollNumber: "R-001"})
		assert.Equal(t, map[string]string{"roll_number": school.ErrRollNumberExists.Error()}, e.fieldErrors(t, err))
	})

	t.Run("update keeps one enrollment per course", func(t *testing.T) {
		s, err := e.svc.UpdateStudent(ctx, e.student, school.StudentForm{
			UserID:     e.parent.ID,
			RollNumber: "R-001",
			Courses:    []int{e.physics.ID, e.physics.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, []int{e.physics.ID}, s.CourseIDs())
	})
}

func TestService_Marks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	form := school.MarksForm{StudentID: e.student.ID, ExamID: e.exam.ID, MarksObtained: "78.5"}
	m, err := e.svc.CreateMarks(ctx, e.teacher, form)
	require.NoError(t, err)
	assert.Equal(t, 78.5, m.MarksObtained)

	t.Run("duplicate", func(t *testing.T) {
		_, err := e.svc.CreateMarks(ctx, e.teacher, form)
		assert.Equal(t, map[string]string{"": school.ErrMarksExists.Error()}, e.fieldErrors(t, err))
	})

	t.Run("not numeric", func(t *testing.T) {
		_, err := e.svc.CreateMarks(ctx, e.teacher, school.MarksForm{StudentID: e.student.ID, ExamID: e.exam.ID, MarksObtained: "abc"})
		assert.Contains(t, e.fieldErrors(t, err), "marks_obtained")
	})

	t.Run("update", func(t *testing.T) {
		updated, err := e.svc.UpdateMarks(ctx, e.teacher, m, school.MarksForm{StudentID: e.student.ID, ExamID: e.exam.ID, MarksObtained: "80"})
		require.NoError(t, err)
		assert.Equal(t, 80.0, updated.MarksObtained)
	})

	t.Run("list is scoped to the teacher", func(t *testing.T) {
		marks, err := e.svc.ListMarks(ctx, e.teacher, nil)
		require.NoError(t, err)
		assert.Len(t, marks, 1)

		// no teacher profile
		_, err = e.svc.ListMarks(ctx, e.admin, nil)
		assert.True(t, school.IsNotFound(err))
	})
}

func TestService_CourseOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, func(conf *core.Config) { conf.School.EnforceCourseOwnership = true })

	physicsExam, err := e.svc.CreateExam(ctx, school.ExamForm{Name: "Final", CourseID: e.physics.ID, Date: "2024-06-01"})
	require.NoError(t, err)

	_, err = e.svc.CreateMarks(ctx, e.teacher, school.MarksForm{StudentID: e.student.ID, ExamID: physicsExam.ID, MarksObtained: "50"})
	assert.Equal(t, school.ErrAccessDenied, err)
	_, err = e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.physics.ID, Date: "2024-03-04"})
	assert.Equal(t, school.ErrAccessDenied, err)

	a, err := e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "2024-03-04", Status: "on"})
	require.NoError(t, err)
	_, err = e.svc.GetAttendance(ctx, e.teacher, a.ID)
	assert.NoError(t, err)

	// a teacher role without a teacher profile owns nothing
	other := testutil.CreateUser(t, e.usrRepo, "other", user.RoleTeacher)
	_, err = e.svc.GetAttendance(ctx, other, a.ID)
	assert.Equal(t, school.ErrAccessDenied, err)
}

func TestService_Attendance(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	form := school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "2024-03-04", Status: "on"}
	a, err := e.svc.CreateAttendance(ctx, e.teacher, form)
	require.NoError(t, err)
	assert.True(t, a.Status)

	t.Run("duplicate", func(t *testing.T) {
		form.Status = ""
		_, err := e.svc.CreateAttendance(ctx, e.teacher, form)
		assert.Equal(t, map[string]string{"": school.ErrAttendanceExists.Error()}, e.fieldErrors(t, err))
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "04/03/2024"})
		assert.Contains(t, e.fieldErrors(t, err), "date")
	})

	t.Run("notifications are off by default", func(t *testing.T) {
		_, err := e.svc.UpdateAttendance(ctx, e.teacher, a, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "2024-03-04"})
		require.NoError(t, err)
		assert.Empty(t, e.mail.Sent())
	})
}

func TestService_AbsenceNotification(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, func(conf *core.Config) { conf.School.NotifyAbsence = true })

	present, err := e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "2024-03-04", Status: "on"})
	require.NoError(t, err)
	assert.Empty(t, e.mail.Sent())

	_, err = e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.physics.ID, Date: "2024-03-04"})
	require.NoError(t, err)

	sent := e.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, e.parent.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "was marked absent from Physics on 2024-03-04")

	// present to absent
	_, err = e.svc.UpdateAttendance(ctx, e.teacher, present, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: "2024-03-04"})
	require.NoError(t, err)
	assert.Len(t, e.mail.Sent(), 2)
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	days := []struct {
		date   string
		status string
	}{
		{"2024-03-04", "on"},
		{"2024-03-05", ""},
		{"2024-03-06", "on"},
	}
	for _, d := range days {
		_, err := e.svc.CreateAttendance(ctx, e.teacher, school.AttendanceForm{StudentID: e.student.ID, CourseID: e.algebra.ID, Date: d.date, Status: d.status})
		require.NoError(t, err)
	}
	_, err := e.svc.CreateMarks(ctx, e.teacher, school.MarksForm{StudentID: e.student.ID, ExamID: e.exam.ID, MarksObtained: "64"})
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		dash, err := e.svc.Dashboard(ctx, e.admin)
		require.NoError(t, err)
		assert.Equal(t, school.Counts{Students: 1, Teachers: 1, Courses: 2, Exams: 1}, dash.Counts)
		assert.Nil(t, dash.Student)
	})

	t.Run("teacher", func(t *testing.T) {
		dash, err := e.svc.Dashboard(ctx, e.teacher)
		require.NoError(t, err)
		require.NotNil(t, dash.Teacher)
		assert.Len(t, dash.Attendance, 3)
		assert.Len(t, dash.Marks, 1)
	})

	t.Run("parent", func(t *testing.T) {
		dash, err := e.svc.Dashboard(ctx, e.parent)
		require.NoError(t, err)
		require.NotNil(t, dash.Student)
		assert.Equal(t, e.student.ID, dash.Student.ID)
		assert.Equal(t, school.AttendanceSummary{Present: 2, Absent: 1}, dash.Summary)
		assert.Equal(t, dash.Summary.Total(), len(dash.Attendance))
		assert.Len(t, dash.Marks, 1)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := e.svc.Dashboard(ctx, user.User{ID: e.admin.ID, Role: user.RoleUnknown})
		assert.Equal(t, school.ErrRoleNotRecognized, err)
	})
}
