package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

const studentQuery = `SELECT s.id, s.user_id, s.roll_number, u.username, u.name
	FROM students s JOIN users u ON u.id = s.user_id`

var studentOrdering = map[string]string{
	"id":          "s.id",
	"roll_number": "s.roll_number",
	"username":    "u.username",
	"name":        "u.name",
}

func (repo schoolRepository) withStudentCourses(ctx context.Context, exe core.DBExecutor, students []school.Student) error {
	ids := make([]int, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	byStudent, err := loadCourses(ctx, exe, "student_course", "student_id", ids)
	if err != nil {
		return err
	}
	for i := range students {
		students[i].Courses = byStudent[students[i].ID]
	}
	return nil
}

func (repo schoolRepository) QueryStudents(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Student, error) {
	exe := getExec(repo.exec, exec)

	students := make([]school.Student, 0)
	if err := exe.SelectContext(ctx, &students, studentQuery+orderBy(ordering, studentOrdering, "s.id ASC")); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if err := repo.withStudentCourses(ctx, exe, students); err != nil {
		return nil, err
	}
	return students, nil
}

func (repo schoolRepository) GetStudent(ctx context.Context, filter school.ProfileFilter, exec ...core.DBExecutor) (school.Student, error) {
	exe := getExec(repo.exec, exec)

	var query string
	var arg int
	switch {
	case filter.ID != 0:
		query, arg = studentQuery+" WHERE s.id = ?", filter.ID
	case filter.UserID != 0:
		query, arg = studentQuery+" WHERE s.user_id = ?", filter.UserID
	default:
		return school.Student{}, school.ErrNotFound
	}

	students := make([]school.Student, 1)
	if err := exe.GetContext(ctx, &students[0], exe.Rebind(query), arg); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrNotFound, "finding student")
	}
	if err := repo.withStudentCourses(ctx, exe, students); err != nil {
		return school.Student{}, err
	}
	return students[0], nil
}

func (repo schoolRepository) CreateStudent(ctx context.Context, s school.Student, courseIDs []int, exec ...core.DBExecutor) (school.Student, error) {
	exe := getExec(repo.exec, exec)

	id, err := insertReturningID(ctx, exe,
		"INSERT INTO students (user_id, roll_number) VALUES (?, ?)", s.UserID, s.RollNumber)
	if err != nil {
		return school.Student{}, trapUniqueErr(err, schoolUniqueErrs, "inserting student")
	}
	if err := setCourses(ctx, exe, "student_course", "student_id", id, courseIDs); err != nil {
		return school.Student{}, err
	}
	return repo.GetStudent(ctx, school.ProfileFilter{ID: id}, exe)
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, s school.Student, courseIDs []int, exec ...core.DBExecutor) (school.Student, error) {
	exe := getExec(repo.exec, exec)

	err := execAffecting(ctx, exe, school.ErrNotFound,
		"UPDATE students SET user_id = ?, roll_number = ? WHERE id = ?", s.UserID, s.RollNumber, s.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Student{}, err
		}
		return school.Student{}, trapUniqueErr(err, schoolUniqueErrs, "updating student")
	}
	if err := setCourses(ctx, exe, "student_course", "student_id", s.ID, courseIDs); err != nil {
		return school.Student{}, err
	}
	return repo.GetStudent(ctx, school.ProfileFilter{ID: s.ID}, exe)
}

// DeleteStudent deletes the student; enrollments, marks and attendance cascade.
func (repo schoolRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "students", id)
}
