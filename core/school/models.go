package school

import (
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/edudesk/core"
)

// DateLayout is the layout of dates submitted through forms.
const DateLayout = "2006-01-02"

type Course struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	Code        string `db:"code"`
	Description string `db:"description"`
}

type Student struct {
	ID         int    `db:"id"`
	UserID     int    `db:"user_id"`
	RollNumber string `db:"roll_number"`

	// read only
	Username string   `db:"username"`
	Name     string   `db:"name"`
	Courses  []Course `db:"-"`
}

func (s Student) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Username
}

// CourseIDs returns the ids of the courses the student is enrolled in.
func (s Student) CourseIDs() []int { return courseIDs(s.Courses) }

type Teacher struct {
	ID     int `db:"id"`
	UserID int `db:"user_id"`

	// read only
	Username string   `db:"username"`
	Name     string   `db:"name"`
	Courses  []Course `db:"-"`
}

func (t Teacher) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Username
}

// CourseIDs returns the ids of the courses assigned to the teacher.
func (t Teacher) CourseIDs() []int { return courseIDs(t.Courses) }

// Teaches reports whether the teacher is assigned to the course.
func (t Teacher) Teaches(courseID int) bool {
	for _, c := range t.Courses {
		if c.ID == courseID {
			return true
		}
	}
	return false
}

type Exam struct {
	ID       int       `db:"id"`
	Name     string    `db:"name"`
	CourseID int       `db:"course_id"`
	Date     time.Time `db:"date"`

	// read only
	CourseName string `db:"course_name"`
}

func (e Exam) DisplayName() string {
	return e.Name + " (" + e.CourseName + ")"
}

type Marks struct {
	ID            int     `db:"id"`
	StudentID     int     `db:"student_id"`
	ExamID        int     `db:"exam_id"`
	MarksObtained float64 `db:"marks_obtained"`

	// read only
	StudentName string    `db:"student_name"`
	RollNumber  string    `db:"roll_number"`
	ExamName    string    `db:"exam_name"`
	ExamDate    time.Time `db:"exam_date"`
	CourseID    int       `db:"course_id"`
	CourseName  string    `db:"course_name"`
}

type Attendance struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	Date      time.Time `db:"date"`
	Status    bool      `db:"status"` // present

	// read only
	StudentName string `db:"student_name"`
	RollNumber  string `db:"roll_number"`
	CourseName  string `db:"course_name"`
}

func (a Attendance) StatusText() string {
	if a.Status {
		return "Present"
	}
	return "Absent"
}

// RecordFilter narrows Marks and Attendance queries.
// CourseIDs only applies when ScopeCourses is set; an empty scope matches nothing.
type RecordFilter struct {
	StudentID    int
	ScopeCourses bool
	CourseIDs    []int
}

type Counts struct {
	Students int `db:"students"`
	Teachers int `db:"teachers"`
	Courses  int `db:"courses"`
	Exams    int `db:"exams"`
}

type AttendanceSummary struct {
	Present int `db:"present"`
	Absent  int `db:"absent"`
}

func (s AttendanceSummary) Total() int { return s.Present + s.Absent }

// Forms

type CourseForm struct {
	Name        string `form:"name" validate:"required,max=100"`
	Code        string `form:"code" validate:"required,max=10"`
	Description string `form:"description"`
}

func (f *CourseForm) Clean() {
	f.Name = core.CleanString(f.Name)
	f.Code = core.CleanString(f.Code)
	f.Description = strings.TrimSpace(f.Description)
}

func NewCourseForm(c Course) CourseForm {
	return CourseForm{Name: c.Name, Code: c.Code, Description: c.Description}
}

type StudentForm struct {
	UserID     int    `form:"user" validate:"required"`
	RollNumber string `form:"roll_number" validate:"required,max=20"`
	Courses    []int  `form:"courses"`
}

func (f *StudentForm) Clean() {
	f.RollNumber = core.CleanString(f.RollNumber)
	f.Courses = dedupe(f.Courses)
}

func NewStudentForm(s Student) StudentForm {
	return StudentForm{UserID: s.UserID, RollNumber: s.RollNumber, Courses: s.CourseIDs()}
}

type TeacherForm struct {
	UserID  int   `form:"user" validate:"required"`
	Courses []int `form:"courses"`
}

func (f *TeacherForm) Clean() {
	f.Courses = dedupe(f.Courses)
}

func NewTeacherForm(t Teacher) TeacherForm {
	return TeacherForm{UserID: t.UserID, Courses: t.CourseIDs()}
}

type ExamForm struct {
	Name     string `form:"name" validate:"required,max=50"`
	CourseID int    `form:"course" validate:"required"`
	Date     string `form:"date" validate:"required,datetime=2006-01-02"`
}

func (f *ExamForm) Clean() {
	f.Name = core.CleanString(f.Name)
	f.Date = core.CleanString(f.Date)
}

func NewExamForm(e Exam) ExamForm {
	return ExamForm{Name: e.Name, CourseID: e.CourseID, Date: e.Date.Format(DateLayout)}
}

type MarksForm struct {
	StudentID     int    `form:"student" validate:"required"`
	ExamID        int    `form:"exam" validate:"required"`
	MarksObtained string `form:"marks_obtained" validate:"required,float"`
}

func (f *MarksForm) Clean() {
	f.MarksObtained = core.CleanString(f.MarksObtained)
}

func (f MarksForm) Score() float64 {
	score, _ := strconv.ParseFloat(f.MarksObtained, 64)
	return score
}

func NewMarksForm(m Marks) MarksForm {
	return MarksForm{
		StudentID:     m.StudentID,
		ExamID:        m.ExamID,
		MarksObtained: strconv.FormatFloat(m.MarksObtained, 'f', -1, 64),
	}
}

// AttendanceForm.Status is a checkbox: any of "on", "true" or "1" means present.
type AttendanceForm struct {
	StudentID int    `form:"student" validate:"required"`
	CourseID  int    `form:"course" validate:"required"`
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	Status    string `form:"status"`
}

func (f *AttendanceForm) Clean() {
	f.Date = core.CleanString(f.Date)
	f.Status = core.CleanString(f.Status, true /* lower */)
}

func (f AttendanceForm) Present() bool {
	switch f.Status {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// NewAttendanceForm returns a form for a, or the defaults of a new record when a is zero.
func NewAttendanceForm(a Attendance) AttendanceForm {
	if a.ID == 0 {
		return AttendanceForm{Date: time.Now().Format(DateLayout), Status: "on"}
	}
	form := AttendanceForm{StudentID: a.StudentID, CourseID: a.CourseID, Date: a.Date.Format(DateLayout)}
	if a.Status {
		form.Status = "on"
	}
	return form
}

func parseDate(s string) time.Time {
	d, _ := time.ParseInLocation(DateLayout, s, time.UTC)
	return d
}

func courseIDs(courses []Course) []int {
	ids := make([]int, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	return ids
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
