package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
	"github.com/trezcool/edudesk/internal/testutil"
)

type fixtures struct {
	db      *sqlx.DB
	repo    *schoolRepository
	algebra school.Course
	physics school.Course
	student school.Student
	teacher school.Teacher
	exam    school.Exam
}

func date(s string) time.Time {
	d, _ := time.ParseInLocation(school.DateLayout, s, time.UTC)
	return d
}

func setup(t *testing.T) fixtures {
	t.Helper()
	ctx := context.Background()

	db := testutil.OpenDB(t)
	usrRepo := NewUserRepository(db)
	repo := NewSchoolRepository(db)
	f := fixtures{db: db, repo: repo}

	var err error
	f.algebra, err = repo.CreateCourse(ctx, school.Course{Name: "Algebra", Code: "MA101"})
	require.NoError(t, err)
	f.physics, err = repo.CreateCourse(ctx, school.Course{Name: "Physics", Code: "PH101", Description: "Mechanics"})
	require.NoError(t, err)

	parent := testutil.CreateUser(t, usrRepo, "parent", user.RoleParent)
	f.student, err = repo.CreateStudent(ctx, school.Student{UserID: parent.ID, RollNumber: "R-001"}, []int{f.algebra.ID, f.physics.ID})
	require.NoError(t, err)

	tchr := testutil.CreateUser(t, usrRepo, "teacher", user.RoleTeacher)
	f.teacher, err = repo.CreateTeacher(ctx, school.Teacher{UserID: tchr.ID}, []int{f.algebra.ID})
	require.NoError(t, err)

	f.exam, err = repo.CreateExam(ctx, school.Exam{Name: "Midterm", CourseID: f.algebra.ID, Date: date("2024-03-01")})
	require.NoError(t, err)
	return f
}

func TestSchoolRepository_Profiles(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	assert.Equal(t, "Test parent", f.student.Name)
	assert.Equal(t, []int{f.algebra.ID, f.physics.ID}, f.student.CourseIDs())
	assert.Equal(t, []int{f.algebra.ID}, f.teacher.CourseIDs())

	got, err := f.repo.GetTeacher(ctx, school.ProfileFilter{UserID: f.teacher.UserID})
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, got.ID)

	_, err = f.repo.GetStudent(ctx, school.ProfileFilter{UserID: f.teacher.UserID})
	assert.Equal(t, school.ErrNotFound, err)

	t.Run("unique roll number", func(t *testing.T) {
		other := testutil.CreateUser(t, NewUserRepository(f.db), "other", user.RoleParent)
		_, err := f.repo.CreateStudent(ctx, school.Student{UserID: other.ID, RollNumber: "R-001"}, nil)
		assert.Equal(t, school.ErrRollNumberExists, err)
	})

	t.Run("one student profile per user", func(t *testing.T) {
		_, err := f.repo.CreateStudent(ctx, school.Student{UserID: f.student.UserID, RollNumber: "R-002"}, nil)
		assert.Equal(t, school.ErrStudentUserExists, err)
	})

	t.Run("update courses", func(t *testing.T) {
		s, err := f.repo.UpdateStudent(ctx, f.student, []int{f.physics.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{f.physics.ID}, s.CourseIDs())
	})

	t.Run("duplicate course code", func(t *testing.T) {
		_, err := f.repo.CreateCourse(ctx, school.Course{Name: "Algebra II", Code: "MA101"})
		assert.Equal(t, school.ErrCourseCodeExists, err)

		c := f.physics
		c.Code = "MA101"
		_, err = f.repo.UpdateCourse(ctx, c)
		assert.Equal(t, school.ErrCourseCodeExists, err)
	})
}

func TestSchoolRepository_Ordering(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	courses, err := f.repo.QueryCourses(ctx, []core.DBOrdering{{Field: "code", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "PH101", courses[0].Code)

	// unknown fields are ignored
	courses, err = f.repo.QueryCourses(ctx, []core.DBOrdering{{Field: "code; DROP TABLE courses", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, "MA101", courses[0].Code)
}

func TestSchoolRepository_MarksUniqueness(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	m, err := f.repo.CreateMarks(ctx, school.Marks{StudentID: f.student.ID, ExamID: f.exam.ID, MarksObtained: 78.5})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", m.ExamName)
	assert.Equal(t, "Algebra", m.CourseName)
	assert.Equal(t, f.algebra.ID, m.CourseID)

	_, err = f.repo.CreateMarks(ctx, school.Marks{StudentID: f.student.ID, ExamID: f.exam.ID, MarksObtained: 12})
	assert.Equal(t, school.ErrMarksExists, err)

	marks, err := f.repo.QueryMarks(ctx, school.RecordFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, 78.5, marks[0].MarksObtained)
}

func TestSchoolRepository_AttendanceUniqueness(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	a, err := f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.algebra.ID, Date: date("2024-03-04"), Status: true})
	require.NoError(t, err)
	assert.True(t, a.Date.Equal(date("2024-03-04")))
	assert.Equal(t, "R-001", a.RollNumber)

	_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.algebra.ID, Date: date("2024-03-04"), Status: false})
	assert.Equal(t, school.ErrAttendanceExists, err)

	// another day or course is fine
	_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.algebra.ID, Date: date("2024-03-05")})
	require.NoError(t, err)
	_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.physics.ID, Date: date("2024-03-04")})
	require.NoError(t, err)

	got, err := f.repo.GetAttendance(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Status)
}

func TestSchoolRepository_ScopedRecords(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	physicsExam, err := f.repo.CreateExam(ctx, school.Exam{Name: "Final", CourseID: f.physics.ID, Date: date("2024-06-01")})
	require.NoError(t, err)
	for _, examID := range []int{f.exam.ID, physicsExam.ID} {
		_, err = f.repo.CreateMarks(ctx, school.Marks{StudentID: f.student.ID, ExamID: examID, MarksObtained: 50})
		require.NoError(t, err)
	}
	for _, courseID := range []int{f.algebra.ID, f.physics.ID} {
		_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: courseID, Date: date("2024-03-04"), Status: true})
		require.NoError(t, err)
	}

	scope := school.RecordFilter{ScopeCourses: true, CourseIDs: f.teacher.CourseIDs()}
	marks, err := f.repo.QueryMarks(ctx, scope, nil)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, f.exam.ID, marks[0].ExamID)

	records, err := f.repo.QueryAttendance(ctx, scope, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, f.algebra.ID, records[0].CourseID)

	// a teacher without courses sees nothing
	empty := school.RecordFilter{ScopeCourses: true}
	marks, err = f.repo.QueryMarks(ctx, empty, nil)
	require.NoError(t, err)
	assert.Empty(t, marks)
	records, err = f.repo.QueryAttendance(ctx, empty, nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = f.repo.QueryAttendance(ctx, school.RecordFilter{StudentID: f.student.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSchoolRepository_DeleteStudentCascades(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.repo.CreateMarks(ctx, school.Marks{StudentID: f.student.ID, ExamID: f.exam.ID, MarksObtained: 90})
	require.NoError(t, err)
	_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.algebra.ID, Date: date("2024-03-04"), Status: true})
	require.NoError(t, err)

	require.NoError(t, f.repo.DeleteStudent(ctx, f.student.ID))

	marks, err := f.repo.QueryMarks(ctx, school.RecordFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, marks)
	records, err := f.repo.QueryAttendance(ctx, school.RecordFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	var enrollments int
	require.NoError(t, f.db.Get(&enrollments, "SELECT COUNT(*) FROM student_course"))
	assert.Zero(t, enrollments)

	assert.Equal(t, school.ErrNotFound, f.repo.DeleteStudent(ctx, f.student.ID))
}

func TestSchoolRepository_DeleteCourseCascades(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.repo.CreateMarks(ctx, school.Marks{StudentID: f.student.ID, ExamID: f.exam.ID, MarksObtained: 90})
	require.NoError(t, err)

	require.NoError(t, f.repo.DeleteCourse(ctx, f.algebra.ID))

	_, err = f.repo.GetExam(ctx, f.exam.ID)
	assert.Equal(t, school.ErrNotFound, err)
	marks, err := f.repo.QueryMarks(ctx, school.RecordFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, marks)

	tchr, err := f.repo.GetTeacher(ctx, school.ProfileFilter{ID: f.teacher.ID})
	require.NoError(t, err)
	assert.Empty(t, tchr.Courses)
}

func TestSchoolRepository_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	counts, err := f.repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, school.Counts{Students: 1, Teachers: 1, Courses: 2, Exams: 1}, counts)

	summary, err := f.repo.SummarizeAttendance(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, school.AttendanceSummary{}, summary)

	statuses := []bool{true, false, true, true, false}
	for i, status := range statuses {
		d := date("2024-03-01").AddDate(0, 0, i)
		_, err = f.repo.CreateAttendance(ctx, school.Attendance{StudentID: f.student.ID, CourseID: f.algebra.ID, Date: d, Status: status})
		require.NoError(t, err)
	}

	summary, err = f.repo.SummarizeAttendance(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Present)
	assert.Equal(t, 2, summary.Absent)
	assert.Equal(t, len(statuses), summary.Total())
}
