package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
)

const examQuery = `SELECT e.id, e.name, e.course_id, e.date, c.name AS course_name
	FROM exams e JOIN courses c ON c.id = e.course_id`

var examOrdering = map[string]string{
	"id":     "e.id",
	"name":   "e.name",
	"date":   "e.date",
	"course": "c.name",
}

func (repo schoolRepository) QueryExams(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Exam, error) {
	exe := getExec(repo.exec, exec)

	exams := make([]school.Exam, 0)
	if err := exe.SelectContext(ctx, &exams, examQuery+orderBy(ordering, examOrdering, "e.id ASC")); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	return exams, nil
}

func (repo schoolRepository) GetExam(ctx context.Context, id int, exec ...core.DBExecutor) (school.Exam, error) {
	exe := getExec(repo.exec, exec)

	var e school.Exam
	if err := exe.GetContext(ctx, &e, exe.Rebind(examQuery+" WHERE e.id = ?"), id); err != nil {
		return school.Exam{}, trapNoRowsErr(err, school.ErrNotFound, "finding exam")
	}
	return e, nil
}

func (repo schoolRepository) CreateExam(ctx context.Context, e school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	exe := getExec(repo.exec, exec)

	id, err := insertReturningID(ctx, exe,
		"INSERT INTO exams (name, course_id, date) VALUES (?, ?, ?)", e.Name, e.CourseID, e.Date)
	if err != nil {
		return school.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return repo.GetExam(ctx, id, exe)
}

func (repo schoolRepository) UpdateExam(ctx context.Context, e school.Exam, exec ...core.DBExecutor) (school.Exam, error) {
	exe := getExec(repo.exec, exec)

	err := execAffecting(ctx, exe, school.ErrNotFound,
		"UPDATE exams SET name = ?, course_id = ?, date = ? WHERE id = ?", e.Name, e.CourseID, e.Date, e.ID)
	if err != nil {
		if err == school.ErrNotFound {
			return school.Exam{}, err
		}
		return school.Exam{}, errors.Wrap(err, "updating exam")
	}
	return repo.GetExam(ctx, e.ID, exe)
}

// DeleteExam deletes the exam and its marks.
func (repo schoolRepository) DeleteExam(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, getExec(repo.exec, exec), "exams", id)
}
