package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

const teacherQuery = `SELECT t.id, t.user_id, u.username, u.name
	FROM teachers t JOIN users u ON u.id = t.user_id`

var teacherOrdering = map[string]string{
	"id":       "t.id",
	"username": "u.username",
	"name":     "u.name",
}

func (repo schoolRepository) withTeacherCourses(ctx context.Context, exe core.DBExecutor, teachers []school.Teacher) error {
	ids := make([]int, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.ID)
	}
	byTeacher, err := loadCourses(ctx, exe, "teacher_course", "teacher_id", ids)
	if err != nil {
		return err
	}
	for i := range teachers {
		teachers[i].Courses = byTeacher[teachers[i].ID]
	}
	return nil
}

func (repo schoolRepository) QueryTeachers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Teacher, error) {
	exe := getExec(repo.exec, exec)

	teachers := make([]school.Teacher, 0)
	if err := exe.SelectContext(ctx, &teachers, teacherQuery+orderBy(ordering, teacherOrdering, "t.id ASC")); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	if err := repo.withTeacherCourses(ctx, exe, teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

func (repo schoolRepository) GetTeacher(ctx context.Context, filter school.ProfileFilter, exec ...core.DBExecutor) (school.Teacher, error) {
	exe := getExec(repo.exec, exec)

	var query string
	var arg int
	switch {
	case filter.ID != 0:
		query, arg = teacherQuery+" WHERE t.id = ?", filter.ID
	case filter.UserID != 0:
		query, arg = teacherQuery+" WHERE t.user_id = ?", filter.UserID
	default:
		return school.Teacher{}, school.ErrNotFound
	}

	teachers := make([]school.Teacher, 1)
	if err := exe.GetContext(ctx, &teachers[0], exe.Rebind(query), arg); err != nil {
		return school.Teacher{}, trapNoRowsErr(err, school.ErrNotFound, "finding teacher")
	}
	if err := repo.withTeacherCourses(ctx, exe, teachers); err != nil {
		return school.Teacher{}, err
	}
	return teachers[0], nil
}

func (repo schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher, courseIDs []int, exec ...core.DBExecutor) (school.Teacher, error) {
	exe := getExec(repo.exec, exec)

	id, err := insertReturningID(ctx, exe, "INSERT INTO teachers (user_id) VALUES (?)", t.UserID)
	if err != nil {
		return school.Teacher{}, trapUniqueErr(err, schoolUniqueErrs, "inserting teacher")
	}
	if err := setCourses(ctx, exe, "teacher_course", "teacher_id", id, courseIDs); err != nil {
		return school.Teacher{}, err
	}
	return repo.GetTeacher(ctx, school.ProfileFilter{ID: id}, exe)
}

func (repo schoolRepository) UpdateTeacher(ctx context.Context, t school.Teacher, courseIDs []int, exec ...core.DBExecutor) (school.Teacher, error) {
	exe := getExec(repo.exec, exec)

	err := execAffecting(ctx, exe, school.ErrNotFound, "UPDATE teachers SET user_id = ? WHERE id = ?", t.UserID, t.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Teacher{}, err
		}
		return school.Teacher{}, trapUniqueErr(err, schoolUniqueErrs, "updating teacher")
	}
	if err := setCourses(ctx, exe, "teacher_course", "teacher_id", t.ID, courseIDs); err != nil {
		return school.Teacher{}, err
	}
	return repo.GetTeacher(ctx, school.ProfileFilter{ID: t.ID}, exe)
}

// DeleteTeacher deletes the teacher and its course assignments.
func (repo schoolRepository) DeleteTeacher(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "teachers", id)
}
