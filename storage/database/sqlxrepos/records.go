package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

const (
	marksQuery = `SELECT m.id, m.student_id, m.exam_id, m.marks_obtained,
		u.name AS student_name, s.roll_number, e.name AS exam_name, e.date AS exam_date,
		e.course_id, c.name AS course_name
	FROM marks m
	JOIN students s ON s.id = m.student_id
	JOIN users u ON u.id = s.user_id
	JOIN exams e ON e.id = m.exam_id
	JOIN courses c ON c.id = e.course_id`

	attendanceQuery = `SELECT a.id, a.student_id, a.course_id, a.date, a.status,
		u.name AS student_name, s.roll_number, c.name AS course_name
	FROM attendance a
	JOIN students s ON s.id = a.student_id
	JOIN users u ON u.id = s.user_id
	JOIN courses c ON c.id = a.course_id`
)

var (
	marksOrdering = map[string]string{
		"id":      "m.id",
		"student": "u.name",
		"roll":    "s.roll_number",
		"exam":    "e.name",
		"date":    "e.date",
		"course":  "c.name",
		"marks":   "m.marks_obtained",
	}

	attendanceOrdering = map[string]string{
		"id":      "a.id",
		"date":    "a.date",
		"student": "u.name",
		"roll":    "s.roll_number",
		"course":  "c.name",
		"status":  "a.status",
	}
)

// filterRecords appends the RecordFilter conditions to query. ok is false when the filter
// matches nothing, i.e. its course scope is empty.
func filterRecords(query string, filter school.RecordFilter, studentCol, courseCol string) (q string, args []interface{}, ok bool, err error) {
	conds := make([]string, 0, 2)
	if filter.StudentID != 0 {
		conds = append(conds, studentCol+" = ?")
		args = append(args, filter.StudentID)
	}
	if filter.ScopeCourses {
		if len(filter.CourseIDs) == 0 {
			return "", nil, false, nil
		}
		conds = append(conds, courseCol+" IN (?)")
		args = append(args, filter.CourseIDs)
	}

	q, args, err = sqlx.In(query+where(conds), args...)
	return q, args, true, err
}

// Marks

func (repo schoolRepository) QueryMarks(ctx context.Context, filter school.RecordFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Marks, error) {
	exe := getExec(repo.exec, exec)
	marks := make([]school.Marks, 0)

	query, args, ok, err := filterRecords(marksQuery, filter, "m.student_id", "e.course_id")
	if err != nil {
		return nil, errors.Wrap(err, "building marks query")
	}
	if !ok {
		return marks, nil
	}

	query += orderBy(ordering, marksOrdering, "m.id ASC")
	if err := exe.SelectContext(ctx, &marks, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return marks, nil
}

func (repo schoolRepository) GetMarks(ctx context.Context, id int, exec ...core.DBExecutor) (school.Marks, error) {
	exe := getExec(repo.exec, exec)

	var m school.Marks
	if err := exe.GetContext(ctx, &m, exe.Rebind(marksQuery+" WHERE m.id = ?"), id); err != nil {
		return school.Marks{}, trapNoRowsErr(err, school.ErrNotFound, "finding marks")
	}
	return m, nil
}

func (repo schoolRepository) CreateMarks(ctx context.Context, m school.Marks, exec ...core.DBExecutor) (school.Marks, error) {
	exe := getExec(repo.exec, exec)

	id, err := insertReturningID(ctx, exe,
		"INSERT INTO marks (student_id, exam_id, marks_obtained) VALUES (?, ?, ?)",
		m.StudentID, m.ExamID, m.MarksObtained)
	if err != nil {
		return school.Marks{}, trapUniqueErr(err, schoolUniqueErrs, "inserting marks")
	}
	return repo.GetMarks(ctx, id, exe)
}

func (repo schoolRepository) UpdateMarks(ctx context.Context, m school.Marks, exec ...core.DBExecutor) (school.Marks, error) {
	exe := getExec(repo.exec, exec)

	err := execAffecting(ctx, exe, school.ErrNotFound,
		"UPDATE marks SET student_id = ?, exam_id = ?, marks_obtained = ? WHERE id = ?",
		m.StudentID, m.ExamID, m.MarksObtained, m.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Marks{}, err
		}
		return school.Marks{}, trapUniqueErr(err, schoolUniqueErrs, "updating marks")
	}
	return repo.GetMarks(ctx, m.ID, exe)
}

func (repo schoolRepository) DeleteMarks(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "marks", id)
}

// Attendance

func (repo schoolRepository) QueryAttendance(ctx context.Context, filter school.RecordFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Attendance, error) {
	exe := getExec(repo.exec, exec)
	records := make([]school.Attendance, 0)

	query, args, ok, err := filterRecords(attendanceQuery, filter, "a.student_id", "a.course_id")
	if err != nil {
		return nil, errors.Wrap(err, "building attendance query")
	}
	if !ok {
		return records, nil
	}

	query += orderBy(ordering, attendanceOrdering, "a.date DESC, a.id ASC")
	if err := exe.SelectContext(ctx, &records, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo schoolRepository) GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (school.Attendance, error) {
	exe := getExec(repo.exec, exec)

	var a school.Attendance
	if err := exe.GetContext(ctx, &a, exe.Rebind(attendanceQuery+" WHERE a.id = ?"), id); err != nil {
		return school.Attendance{}, trapNoRowsErr(err, school.ErrNotFound, "finding attendance")
	}
	return a, nil
}

func (repo schoolRepository) CreateAttendance(ctx context.Context, a school.Attendance, exec ...core.DBExecutor) (school.Attendance, error) {
	exe := getExec(repo.exec, exec)

	id, err := insertReturningID(ctx, exe,
		"INSERT INTO attendance (student_id, course_id, date, status) VALUES (?, ?, ?, ?)",
		a.StudentID, a.CourseID, a.Date, a.Status)
	if err != nil {
		return school.Attendance{}, trapUniqueErr(err, schoolUniqueErrs, "inserting attendance")
	}
	return repo.GetAttendance(ctx, id, exe)
}

func (repo schoolRepository) UpdateAttendance(ctx context.Context, a school.Attendance, exec ...core.DBExecutor) (school.Attendance, error) {
	exe := getExec(repo.exec, exec)

	err := execAffecting(ctx, exe, school.ErrNotFound,
		"UPDATE attendance SET student_id = ?, course_id = ?, date = ?, status = ? WHERE id = ?",
		a.StudentID, a.CourseID, a.Date, a.Status, a.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Attendance{}, err
		}
		return school.Attendance{}, trapUniqueErr(err, schoolUniqueErrs, "updating attendance")
	}
	return repo.GetAttendance(ctx, a.ID, exe)
}

func (repo schoolRepository) DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "attendance", id)
}

// Dashboard

func (repo schoolRepository) CountAll(ctx context.Context, exec ...core.DBExecutor) (school.Counts, error) {
	exe := getExec(repo.exec, exec)

	var counts school.Counts
	err := exe.GetContext(ctx, &counts, `SELECT
		(SELECT COUNT(*) FROM students) AS students,
		(SELECT COUNT(*) FROM teachers) AS teachers,
		(SELECT COUNT(*) FROM courses) AS courses,
		(SELECT COUNT(*) FROM exams) AS exams`)
	if err != nil {
		return school.Counts{}, errors.Wrap(err, "counting records")
	}
	return counts, nil
}

// SummarizeAttendance partitions the attendance records of a student by status.
func (repo schoolRepository) SummarizeAttendance(ctx context.Context, studentID int, exec ...core.DBExecutor) (school.AttendanceSummary, error) {
	exe := getExec(repo.exec, exec)

	var summary school.AttendanceSummary
	err := exe.GetContext(ctx, &summary, exe.Rebind(`SELECT
		COALESCE(SUM(CASE WHEN status THEN 1 ELSE 0 END), 0) AS present,
		COALESCE(SUM(CASE WHEN status THEN 0 ELSE 1 END), 0) AS absent
		FROM attendance WHERE student_id = ?`), studentID)
	if err != nil {
		return school.AttendanceSummary{}, errors.Wrap(err, "summarizing attendance")
	}
	return summary, nil
}
