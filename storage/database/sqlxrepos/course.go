package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

const courseColumns = "c.id, c.name, c.code, c.description"

var (
	courseOrdering = map[string]string{
		"id":   "c.id",
		"name": "c.name",
		"code": "c.code",
	}

	schoolUniqueErrs = map[string]error{
		"courses_code_key":                         school.ErrCourseCodeExists,
		"students_user_id_key":                     school.ErrStudentUserExists,
		"students_roll_number_key":                 school.ErrRollNumberExists,
		"teachers_user_id_key":                     school.ErrTeacherUserExists,
		"marks_student_id_exam_id_key":             school.ErrMarksExists,
		"attendance_student_id_course_id_date_key": school.ErrAttendanceExists,
	}
)

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{exec: exec}
}

func (repo schoolRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Course, error) {
	exe := getExec(repo.exec, exec)
	query := "SELECT " + courseColumns + " FROM courses c" + orderBy(ordering, courseOrdering, "c.id ASC")

	courses := make([]school.Course, 0)
	if err := exe.SelectContext(ctx, &courses, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo schoolRepository) GetCourse(ctx context.Context, id int, exec ...core.DBExecutor) (school.Course, error) {
	exe := getExec(repo.exec, exec)

	var c school.Course
	if err := exe.GetContext(ctx, &c, exe.Rebind("SELECT "+courseColumns+" FROM courses c WHERE c.id = ?"), id); err != nil {
		return school.Course{}, trapNoRowsErr(err, school.ErrNotFound, "finding course")
	}
	return c, nil
}

func (repo schoolRepository) CountCoursesByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In("SELECT COUNT(*) FROM courses WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building count courses query")
	}
	var cnt int
	if err := exe.GetContext(ctx, &cnt, exe.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return cnt, nil
}

func (repo schoolRepository) CreateCourse(ctx context.Context, c school.Course, exec ...core.DBExecutor) (school.Course, error) {
	id, err := insertReturningID(ctx, getExec(repo.exec, exec),
		"INSERT INTO courses (name, code, description) VALUES (?, ?, ?)",
		c.Name, c.Code, c.Description)
	if err != nil {
		return school.Course{}, trapUniqueErr(err, schoolUniqueErrs, "inserting course")
	}
	c.ID = id
	return c, nil
}

func (repo schoolRepository) UpdateCourse(ctx context.Context, c school.Course, exec ...core.DBExecutor) (school.Course, error) {
	err := execAffecting(ctx, getExec(repo.exec, exec), school.ErrNotFound,
		"UPDATE courses SET name = ?, code = ?, description = ? WHERE id = ?",
		c.Name, c.Code, c.Description, c.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Course{}, err
		}
		return school.Course{}, trapUniqueErr(err, schoolUniqueErrs, "updating course")
	}
	return c, nil
}

// DeleteCourse deletes the course; exams, enrollments, assignments and attendance cascade.
func (repo schoolRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "courses", id)
}

// deleteByID deletes the row id of table, returning school.ErrNotFound if there is none.
func deleteByID(ctx context.Context, exe core.DBExecutor, table string, id int) error {
	err := execAffecting(ctx, exe, school.ErrNotFound, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil && err != school.ErrNotFound {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return err
}

type ownedCourse struct {
	OwnerID int `db:"owner_id"`
	school.Course
}

// loadCourses returns the courses linked to each owner through a join table, keyed by owner id.
func loadCourses(ctx context.Context, exe core.DBExecutor, joinTable, ownerCol string, ownerIDs []int) (map[int][]school.Course, error) {
	byOwner := make(map[int][]school.Course, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return byOwner, nil
	}

	query, args, err := sqlx.In(
		"SELECT j."+ownerCol+" AS owner_id, "+courseColumns+
			" FROM "+joinTable+" j JOIN courses c ON c.id = j.course_id"+
			" WHERE j."+ownerCol+" IN (?) ORDER BY c.name ASC, c.id ASC",
		ownerIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building courses query")
	}

	rows := make([]ownedCourse, 0)
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrapf(err, "querying %s", joinTable)
	}
	for _, row := range rows {
		byOwner[row.OwnerID] = append(byOwner[row.OwnerID], row.Course)
	}
	return byOwner, nil
}

// setCourses replaces the courses linked to owner in a join table.
func setCourses(ctx context.Context, exe core.DBExecutor, joinTable, ownerCol string, ownerID int, courseIDs []int) error {
	if _, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM "+joinTable+" WHERE "+ownerCol+" = ?"), ownerID); err != nil {
		return errors.Wrapf(err, "clearing %s", joinTable)
	}
	insert := exe.Rebind("INSERT INTO " + joinTable + " (" + ownerCol + ", course_id) VALUES (?, ?)")
	for _, courseID := range courseIDs {
		if _, err := exe.ExecContext(ctx, insert, ownerID, courseID); err != nil {
			return errors.Wrapf(err, "inserting into %s", joinTable)
		}
	}
	return nil
}
