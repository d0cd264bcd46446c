package school

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("Access denied.")
	ErrRoleNotRecognized = errors.New("Role not recognized.")

	ErrCourseCodeExists    = errors.New("Course with this Code already exists.")
	ErrStudentUserExists   = errors.New("Student with this User already exists.")
	ErrRollNumberExists    = errors.New("Student with this Roll number already exists.")
	ErrTeacherUserExists   = errors.New("Teacher with this User already exists.")
	ErrMarksExists         = errors.New("Marks with this Student and Exam already exists.")
	ErrAttendanceExists    = errors.New("Attendance with this Student, Course and Date already exists.")
	InvalidChoiceText      = "Select a valid choice. That choice is not one of the available choices."
	errInvalidCourseChoice = "Select a valid choice. %d is not one of the available choices."
)

// uniqueFields maps uniqueness errors returned by the Repository to the form field they belong to.
// An empty field marks a form-level error.
var uniqueFields = map[error]string{
	ErrCourseCodeExists:  "code",
	ErrStudentUserExists: "user",
	ErrRollNumberExists:  "roll_number",
	ErrTeacherUserExists: "user",
	ErrMarksExists:       "",
	ErrAttendanceExists:  "",
}

type (
	Repository interface {
		QueryCourses(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (Course, error)
		CountCoursesByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error

		QueryStudents(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, filter ProfileFilter, exec ...core.DBExecutor) (Student, error)
		CreateStudent(ctx context.Context, s Student, courseIDs []int, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, courseIDs []int, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error

		QueryTeachers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacher(ctx context.Context, filter ProfileFilter, exec ...core.DBExecutor) (Teacher, error)
		CreateTeacher(ctx context.Context, t Teacher, courseIDs []int, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, courseIDs []int, exec ...core.DBExecutor) (Teacher, error)
		DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error

		QueryExams(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Exam, error)
		GetExam(ctx context.Context, id int, exec ...core.DBExecutor) (Exam, error)
		CreateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		UpdateExam(ctx context.Context, e Exam, exec ...core.DBExecutor) (Exam, error)
		DeleteExam(ctx context.Context, id int, exec ...core.DBExecutor) error

		QueryMarks(ctx context.Context, filter RecordFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Marks, error)
		GetMarks(ctx context.Context, id int, exec ...core.DBExecutor) (Marks, error)
		CreateMarks(ctx context.Context, m Marks, exec ...core.DBExecutor) (Marks, error)
		UpdateMarks(ctx context.Context, m Marks, exec ...core.DBExecutor) (Marks, error)
		DeleteMarks(ctx context.Context, id int, exec ...core.DBExecutor) error

		QueryAttendance(ctx context.Context, filter RecordFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attendance, error)
		GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (Attendance, error)
		CreateAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		UpdateAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error

		CountAll(ctx context.Context, exec ...core.DBExecutor) (Counts, error)
		SummarizeAttendance(ctx context.Context, studentID int, exec ...core.DBExecutor) (AttendanceSummary, error)
	}

	// ProfileFilter looks a Student or Teacher up by its own ID or by its user's ID.
	ProfileFilter struct {
		ID     int
		UserID int
	}

	Service struct {
		db       core.DB
		repo     Repository
		usrRepo  user.Repository
		validate *validator.Validate
		mailSvc  core.EmailService
		logger   core.Logger
		conf     core.SchoolConfig
	}
)

func NewService(
	db core.DB,
	repo Repository,
	usrRepo user.Repository,
	validate *validator.Validate,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		usrRepo:  usrRepo,
		validate: validate,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf.School,
	}
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// trapUniqueErr maps a uniqueness error returned by the Repository to a validation error.
func trapUniqueErr(err error) error {
	cause := errors.Cause(err)
	if field, ok := uniqueFields[cause]; ok {
		return core.NewValidationError(cause, core.FieldError{Field: field, Error: cause.Error()})
	}
	return err
}

// withTx runs fn in a transaction, committing if fn succeeds.
func (svc *Service) withTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// validateCourses checks that every id references an existing course.
func (svc *Service) validateCourses(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	cnt, err := svc.repo.CountCoursesByID(ctx, ids)
	if err != nil {
		return err
	}
	if cnt == len(ids) {
		return nil
	}
	for _, id := range ids {
		if _, err := svc.repo.GetCourse(ctx, id); IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "courses", Error: fmt.Sprintf(errInvalidCourseChoice, id)})
		} else if err != nil {
			return err
		}
	}
	return nil
}

// validateRef returns a validation error on field when lookup reports a missing record.
func validateRef(field string, lookup func() error) error {
	if err := lookup(); err != nil {
		if IsNotFound(err) || errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: InvalidChoiceText})
		}
		return err
	}
	return nil
}

// Courses

func (svc *Service) ListCourses(ctx context.Context, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, ordering)
}

func (svc *Service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) CreateCourse(ctx context.Context, form CourseForm) (Course, error) {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return Course{}, err
	}
	c, err := svc.repo.CreateCourse(ctx, Course{Name: form.Name, Code: form.Code, Description: form.Description})
	return c, trapUniqueErr(err)
}

func (svc *Service) UpdateCourse(ctx context.Context, orig Course, form CourseForm) (Course, error) {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return Course{}, err
	}
	c := orig
	c.Name, c.Code, c.Description = form.Name, form.Code, form.Description
	c, err := svc.repo.UpdateCourse(ctx, c)
	return c, trapUniqueErr(err)
}

func (svc *Service) DeleteCourse(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// Students

func (svc *Service) ListStudents(ctx context.Context, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, ordering)
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, ProfileFilter{ID: id})
}

func (svc *Service) validateStudent(ctx context.Context, form *StudentForm) error {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return err
	}
	err := validateRef("user", func() error {
		_, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: form.UserID})
		return err
	})
	if err != nil {
		return err
	}
	return svc.validateCourses(ctx, form.Courses)
}

func (svc *Service) CreateStudent(ctx context.Context, form StudentForm) (Student, error) {
	if err := svc.validateStudent(ctx, &form); err != nil {
		return Student{}, err
	}

	var s Student
	err := svc.withTx(ctx, func(exec core.DBExecutor) error {
		var err error
		s, err = svc.repo.CreateStudent(ctx, Student{UserID: form.UserID, RollNumber: form.RollNumber}, form.Courses, exec)
		return err
	})
	return s, trapUniqueErr(err)
}

func (svc *Service) UpdateStudent(ctx context.Context, orig Student, form StudentForm) (Student, error) {
	if err := svc.validateStudent(ctx, &form); err != nil {
		return Student{}, err
	}

	s := orig
	s.UserID, s.RollNumber = form.UserID, form.RollNumber
	err := svc.withTx(ctx, func(exec core.DBExecutor) error {
		var err error
		s, err = svc.repo.UpdateStudent(ctx, s, form.Courses, exec)
		return err
	})
	return s, trapUniqueErr(err)
}

// DeleteStudent deletes the student along with its enrollments, marks and attendance records.
func (svc *Service) DeleteStudent(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// Teachers

func (svc *Service) ListTeachers(ctx context.Context, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, ordering)
}

func (svc *Service) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, ProfileFilter{ID: id})
}

// TeacherOf returns the teacher profile of usr.
func (svc *Service) TeacherOf(ctx context.Context, usr user.User) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, ProfileFilter{UserID: usr.ID})
}

func (svc *Service) validateTeacher(ctx context.Context, form *TeacherForm) error {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return err
	}
	err := validateRef("user", func() error {
		_, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: form.UserID})
		return err
	})
	if err != nil {
		return err
	}
	return svc.validateCourses(ctx, form.Courses)
}

func (svc *Service) CreateTeacher(ctx context.Context, form TeacherForm) (Teacher, error) {
	if err := svc.validateTeacher(ctx, &form); err != nil {
		return Teacher{}, err
	}

	var t Teacher
	err := svc.withTx(ctx, func(exec core.DBExecutor) error {
		var err error
		t, err = svc.repo.CreateTeacher(ctx, Teacher{UserID: form.UserID}, form.Courses, exec)
		return err
	})
	return t, trapUniqueErr(err)
}

func (svc *Service) UpdateTeacher(ctx context.Context, orig Teacher, form TeacherForm) (Teacher, error) {
	if err := svc.validateTeacher(ctx, &form); err != nil {
		return Teacher{}, err
	}

	t := orig
	t.UserID = form.UserID
	err := svc.withTx(ctx, func(exec core.DBExecutor) error {
		var err error
		t, err = svc.repo.UpdateTeacher(ctx, t, form.Courses, exec)
		return err
	})
	return t, trapUniqueErr(err)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id int) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

// Exams

func (svc *Service) ListExams(ctx context.Context, ordering []core.DBOrdering) ([]Exam, error) {
	return svc.repo.QueryExams(ctx, ordering)
}

func (svc *Service) GetExam(ctx context.Context, id int) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

func (svc *Service) validateExam(ctx context.Context, form *ExamForm) error {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return err
	}
	return validateRef("course", func() error {
		_, err := svc.repo.GetCourse(ctx, form.CourseID)
		return err
	})
}

func (svc *Service) CreateExam(ctx context.Context, form ExamForm) (Exam, error) {
	if err := svc.validateExam(ctx, &form); err != nil {
		return Exam{}, err
	}
	return svc.repo.CreateExam(ctx, Exam{Name: form.Name, CourseID: form.CourseID, Date: parseDate(form.Date)})
}

func (svc *Service) UpdateExam(ctx context.Context, orig Exam, form ExamForm) (Exam, error) {
	if err := svc.validateExam(ctx, &form); err != nil {
		return Exam{}, err
	}
	e := orig
	e.Name, e.CourseID, e.Date = form.Name, form.CourseID, parseDate(form.Date)
	return svc.repo.UpdateExam(ctx, e)
}

func (svc *Service) DeleteExam(ctx context.Context, id int) error {
	return svc.repo.DeleteExam(ctx, id)
}

// Course ownership

// checkOwnership denies a teacher access to records of courses they are not assigned to,
// when course ownership is enforced.
func (svc *Service) checkOwnership(ctx context.Context, caller user.User, courseIDs ...int) error {
	if !svc.conf.EnforceCourseOwnership {
		return nil
	}
	t, err := svc.TeacherOf(ctx, caller)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccessDenied
		}
		return err
	}
	for _, id := range courseIDs {
		if !t.Teaches(id) {
			return ErrAccessDenied
		}
	}
	return nil
}

// teacherScope returns the filter restricting records to the courses of the caller.
func (svc *Service) teacherScope(ctx context.Context, caller user.User) (RecordFilter, error) {
	t, err := svc.TeacherOf(ctx, caller)
	if err != nil {
		return RecordFilter{}, err
	}
	return RecordFilter{ScopeCourses: true, CourseIDs: t.CourseIDs()}, nil
}

// Marks

// ListMarks returns the marks of exams of the caller's courses.
func (svc *Service) ListMarks(ctx context.Context, caller user.User, ordering []core.DBOrdering) ([]Marks, error) {
	filter, err := svc.teacherScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryMarks(ctx, filter, ordering)
}

// GetMarks returns the marks record id, checking course ownership for caller.
func (svc *Service) GetMarks(ctx context.Context, caller user.User, id int) (Marks, error) {
	m, err := svc.repo.GetMarks(ctx, id)
	if err != nil {
		return Marks{}, err
	}
	if err := svc.checkOwnership(ctx, caller, m.CourseID); err != nil {
		return Marks{}, err
	}
	return m, nil
}

func (svc *Service) validateMarks(ctx context.Context, caller user.User, form *MarksForm) error {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return err
	}
	err := validateRef("student", func() error {
		_, err := svc.repo.GetStudent(ctx, ProfileFilter{ID: form.StudentID})
		return err
	})
	if err != nil {
		return err
	}

	var exam Exam
	err = validateRef("exam", func() error {
		var err error
		exam, err = svc.repo.GetExam(ctx, form.ExamID)
		return err
	})
	if err != nil {
		return err
	}
	return svc.checkOwnership(ctx, caller, exam.CourseID)
}

func (svc *Service) CreateMarks(ctx context.Context, caller user.User, form MarksForm) (Marks, error) {
	if err := svc.validateMarks(ctx, caller, &form); err != nil {
		return Marks{}, err
	}
	m, err := svc.repo.CreateMarks(ctx, Marks{StudentID: form.StudentID, ExamID: form.ExamID, MarksObtained: form.Score()})
	return m, trapUniqueErr(err)
}

func (svc *Service) UpdateMarks(ctx context.Context, caller user.User, orig Marks, form MarksForm) (Marks, error) {
	if err := svc.validateMarks(ctx, caller, &form); err != nil {
		return Marks{}, err
	}
	m := orig
	m.StudentID, m.ExamID, m.MarksObtained = form.StudentID, form.ExamID, form.Score()
	m, err := svc.repo.UpdateMarks(ctx, m)
	return m, trapUniqueErr(err)
}

func (svc *Service) DeleteMarks(ctx context.Context, id int) error {
	return svc.repo.DeleteMarks(ctx, id)
}

// Attendance

// ListAttendance returns the attendance records of the caller's courses.
func (svc *Service) ListAttendance(ctx context.Context, caller user.User, ordering []core.DBOrdering) ([]Attendance, error) {
	filter, err := svc.teacherScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryAttendance(ctx, filter, ordering)
}

// GetAttendance returns the attendance record id, checking course ownership for caller.
func (svc *Service) GetAttendance(ctx context.Context, caller user.User, id int) (Attendance, error) {
	a, err := svc.repo.GetAttendance(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	if err := svc.checkOwnership(ctx, caller, a.CourseID); err != nil {
		return Attendance{}, err
	}
	return a, nil
}

func (svc *Service) validateAttendance(ctx context.Context, caller user.User, form *AttendanceForm) error {
	form.Clean()
	if err := svc.validate.Struct(form); err != nil {
		return err
	}
	err := validateRef("student", func() error {
		_, err := svc.repo.GetStudent(ctx, ProfileFilter{ID: form.StudentID})
		return err
	})
	if err != nil {
		return err
	}
	err = validateRef("course", func() error {
		_, err := svc.repo.GetCourse(ctx, form.CourseID)
		return err
	})
	if err != nil {
		return err
	}
	return svc.checkOwnership(ctx, caller, form.CourseID)
}

func (svc *Service) CreateAttendance(ctx context.Context, caller user.User, form AttendanceForm) (Attendance, error) {
	if err := svc.validateAttendance(ctx, caller, &form); err != nil {
		return Attendance{}, err
	}
	a, err := svc.repo.CreateAttendance(ctx, Attendance{
		StudentID: form.StudentID,
		CourseID:  form.CourseID,
		Date:      parseDate(form.Date),
		Status:    form.Present(),
	})
	if err != nil {
		return Attendance{}, trapUniqueErr(err)
	}
	svc.notifyAbsence(ctx, a)
	return a, nil
}

func (svc *Service) UpdateAttendance(ctx context.Context, caller user.User, orig Attendance, form AttendanceForm) (Attendance, error) {
	if err := svc.validateAttendance(ctx, caller, &form); err != nil {
		return Attendance{}, err
	}
	a := orig
	a.StudentID, a.CourseID, a.Date, a.Status = form.StudentID, form.CourseID, parseDate(form.Date), form.Present()
	a, err := svc.repo.UpdateAttendance(ctx, a)
	if err != nil {
		return Attendance{}, trapUniqueErr(err)
	}
	if orig.Status {
		svc.notifyAbsence(ctx, a)
	}
	return a, nil
}

func (svc *Service) DeleteAttendance(ctx context.Context, id int) error {
	return svc.repo.DeleteAttendance(ctx, id)
}
